package http

import (
	"context"
	"net/http"

	"atlas/internal/log"
)

// monthHandler adapts a per-month dashboard read into a handler that takes
// ?year=&month= (defaulting to the current month).
func monthHandler[T any](s *Server, load func(ctx context.Context, userID int64, year, month int) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := queryYearMonth(r, s.svc.Clock.Today())
		if err != nil {
			respondError(w, r, log.OpRead, err)
			return
		}
		data, err := load(r.Context(), principal(r).UserID, year, month)
		if err != nil {
			respondError(w, r, log.OpRead, err)
			return
		}
		NewResponse().Data(data).Write(w)
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	monthHandler(s, s.svc.Dashboard.Overview)(w, r)
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	monthHandler(s, s.svc.Dashboard.Categories)(w, r)
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	monthHandler(s, s.svc.Dashboard.Recurring)(w, r)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	monthHandler(s, s.svc.Dashboard.Calendar)(w, r)
}
