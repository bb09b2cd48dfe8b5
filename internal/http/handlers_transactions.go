package http

import (
	"net/http"
	"sync/atomic"

	"atlas/internal/core"
	"atlas/internal/log"
)

// handleListTransactions lists every row, or one month when both year and
// month are given as query parameters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("year") || q.Has("month") {
		if !q.Has("year") || !q.Has("month") {
			BadRequestError("year and month must be given together").Write(w)
			return
		}
		year, month, err := queryYearMonth(r, core.Date{})
		if err != nil {
			respondError(w, r, log.OpList, err)
			return
		}
		s.listMonth(w, r, year, month)
		return
	}

	txs, err := s.svc.Ledger.List(r.Context(), principal(r).UserID)
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(txs).Write(w)
}

func (s *Server) handleListMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	s.listMonth(w, r, year, month)
}

func (s *Server) listMonth(w http.ResponseWriter, r *http.Request, year, month int) {
	txs, err := s.svc.Ledger.ListMonth(r.Context(), principal(r).UserID, year, month)
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(txs).Write(w)
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Ledger.Series(r.Context(), principal(r).UserID, r.PathValue("masterID"))
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.svc.Ledger.Create(r.Context(), principal(r).UserID, in)
	if err != nil {
		respondError(w, r, log.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.metrics.transactionsCreated, 1)
	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(created.ID, string(created.Type), created.Amount.String(), created.Date.String())
	log.FromContext(r.Context()).WithComponent(log.ComponentLedger).InfoContext(r.Context(), "Transaction created", fields.ToSlice()...)

	NewResponse().Status(http.StatusCreated).Data(created).Write(w)
}

// handleUpdateTransaction applies a partial update; unknown keys are
// rejected so that typos do not silently do nothing.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}

	var patch core.TransactionPatch
	if err := decodeStrictJSON(w, r, &patch); err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}

	updated, err := s.svc.Ledger.Update(r.Context(), principal(r).UserID, id, patch)
	if err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, log.OpDelete, err)
		return
	}

	if err := s.svc.Ledger.Delete(r.Context(), principal(r).UserID, id); err != nil {
		respondError(w, r, log.OpDelete, err)
		return
	}
	NewResponse().
		Message("transaction deleted").
		Field("id", id).
		Write(w)
}
