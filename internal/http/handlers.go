package http

import (
	"context"
	"errors"
	"net/http"

	"gestor/internal/log"
	"gestor/internal/services"
	"gestor/internal/stats"
)

// reportFunc computes one report and returns its JSON view.
type reportFunc func(ctx context.Context, req services.ReportRequest) (any, error)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, services.ReportSummary, func(ctx context.Context, req services.ReportRequest) (any, error) {
		out, err := s.reports.Summary(ctx, req)
		if err != nil {
			return nil, err
		}
		return newSummaryView(out), nil
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, services.ReportTrends, func(ctx context.Context, req services.ReportRequest) (any, error) {
		out, err := s.reports.Trends(ctx, req)
		if err != nil {
			return nil, err
		}
		return newTrendsView(out), nil
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, services.ReportCategories, func(ctx context.Context, req services.ReportRequest) (any, error) {
		out, err := s.reports.CategoryBreakdown(ctx, req)
		if err != nil {
			return nil, err
		}
		return newCategoriesView(out), nil
	})
}

func (s *Server) handleBehavior(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, services.ReportBehavior, func(ctx context.Context, req services.ReportRequest) (any, error) {
		out, err := s.reports.Behavior(ctx, req)
		if err != nil {
			return nil, err
		}
		return newBehaviorView(out), nil
	})
}

// serveReport answers from the report cache or computes the report under
// the configured timeout. Only successful envelopes are cached.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, report string, run reportFunc) {
	req := ParseReportRequest(r.URL.Query(), OwnerFromContext(r.Context()), s.clock.Now())
	key := req.Key(report)

	if body, ok := s.reportCache.Get(key); ok {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Report cache hit", log.FieldReport, report)
		NewJSONResponse().Header("X-Cache", "HIT").Raw(body).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.reportTimeout)
	defer cancel()

	view, err := run(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = stats.DependencyFailure(report+" timed out", err)
		}
		s.logFailure(r.Context(), report, req, err)
		ErrorResponse(err).Write(w)
		return
	}

	b := NewJSONResponse().Data(view)
	body, err := b.Bytes()
	if err != nil {
		s.logFailure(r.Context(), report, req, err)
		ErrorResponse(err).Write(w)
		return
	}
	s.reportCache.Set(key, body)
	NewJSONResponse().Header("X-Cache", "MISS").Raw(body).Write(w)
}

func (s *Server) logFailure(ctx context.Context, report string, req services.ReportRequest, err error) {
	kind := stats.KindOf(err)
	fields := log.NewFields().WithReport(report, req.Owner, req.Period, req.WalletID)
	fields[log.FieldErrorKind] = string(kind)

	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)
	if kind == stats.KindDependencyFailure {
		log.NewStructuredLogger(logger).LogError(ctx, "Report request failed", err, log.OpRead, fields)
		return
	}
	logger.WarnContext(ctx, "Report request rejected", fields.WithError(err).ToSlice()...)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(stats.DependencyFailure("ping store", err)).Status(http.StatusServiceUnavailable).Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
