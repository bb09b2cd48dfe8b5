package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"atlas/internal/core"
	"atlas/internal/log"
)

// markReadRequest accepts the id as a number or a numeric string.
type markReadRequest struct {
	TransactionID flexibleID `json:"transaction_id"`
}

type flexibleID int64

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return core.Invalid("transaction_id", "transaction_id must be an integer")
	}
	*f = flexibleID(id)
	return nil
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.svc.Tracker.Upcoming(r.Context(), principal(r).UserID)
	if err != nil {
		respondError(w, r, log.OpList, err)
		return
	}
	NewResponse().Data(reminders).Write(w)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, log.OpMarkRead, err)
		return
	}

	if err := s.svc.Tracker.MarkRead(r.Context(), principal(r).UserID, int64(req.TransactionID)); err != nil {
		respondError(w, r, log.OpMarkRead, err)
		return
	}

	atomic.AddInt64(&s.metrics.remindersRead, 1)
	NewResponse().Message("notification marked as read").Write(w)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Tracker.MarkAllRead(r.Context(), principal(r).UserID)
	if err != nil {
		respondError(w, r, log.OpMarkRead, err)
		return
	}

	atomic.AddInt64(&s.metrics.remindersRead, n)
	NewResponse().
		Message("all notifications marked as read").
		Field("count", n).
		Write(w)
}
