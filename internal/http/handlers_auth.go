package http

import (
	"errors"
	"net/http"

	"atlas/internal/core"
	"atlas/internal/log"
	"atlas/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, log.OpRegister, err)
		return
	}

	session, err := s.svc.Auth.Register(r.Context(), in)
	if errors.Is(err, core.ErrConflict) {
		BadRequestError("phone or email already registered").Write(w)
		return
	}
	if err != nil {
		respondError(w, r, log.OpRegister, err)
		return
	}

	NewResponse().Status(http.StatusCreated).Data(session).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, log.OpLogin, err)
		return
	}

	session, err := s.svc.Auth.Login(r.Context(), in)
	if errors.Is(err, core.ErrUnauthorized) {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Login failed",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		UnauthorizedError("invalid credentials").Write(w)
		return
	}
	if err != nil {
		respondError(w, r, log.OpLogin, err)
		return
	}

	NewResponse().Data(session).Write(w)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Field("valid", true).
		Field("user", principal(r)).
		Write(w)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Auth.Stats(r.Context())
	if err != nil {
		respondError(w, r, log.OpRead, err)
		return
	}
	NewResponse().Data(stats).Write(w)
}
