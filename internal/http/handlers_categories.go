package http

import (
	"errors"
	"fmt"
	"net/http"

	"atlas/internal/core"
	"atlas/internal/log"
	"atlas/internal/services"
)

const duplicateCategory = "a category with this name and type already exists"

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ := core.CategoryType(r.PathValue("type"))
	categories, err := s.svc.Categories.List(r.Context(), principal(r).UserID, typ)
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(categories).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Categories.Create(r.Context(), principal(r).UserID, in)
	if errors.Is(err, core.ErrConflict) {
		BadRequestError(duplicateCategory).Write(w)
		return
	}
	if err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(created).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}

	var patch core.CategoryPatch
	if err := decodeStrictJSON(w, r, &patch); err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Categories.Update(r.Context(), principal(r).UserID, id, patch)
	if errors.Is(err, core.ErrConflict) {
		BadRequestError(duplicateCategory).Write(w)
		return
	}
	if err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, log.OpDelete, err)
		return
	}

	outcome, err := s.svc.Categories.Delete(r.Context(), principal(r).UserID, id)
	if err != nil {
		respondError(w, r, log.OpDelete, err)
		return
	}

	msg := "category deleted"
	if outcome.Deactivated {
		msg = fmt.Sprintf("category deactivated: still used by %d transactions", outcome.InUse)
	}
	NewResponse().
		Message(msg).
		Field("deactivated", outcome.Deactivated).
		Write(w)
}
