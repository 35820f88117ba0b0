package http

import (
	"net/url"
	"strings"
	"time"

	"gestor/internal/services"
	"gestor/internal/stats"
)

// Query parameter names of the report routes.
const (
	paramPeriod        = "period"
	paramWalletID      = "walletId"
	paramReferenceDate = "referenceDate"
	paramType          = "type"
	paramLimit         = "limit"
)

// ParseReportRequest copies the report parameters of query into a request
// for owner. Values are only trimmed here; the report service validates them.
// A missing reference date is pinned to today so cache keys stay per day.
func ParseReportRequest(query url.Values, owner string, now time.Time) services.ReportRequest {
	req := services.ReportRequest{
		Owner:         owner,
		Period:        sanitizeInput(query.Get(paramPeriod)),
		WalletID:      sanitizeInput(query.Get(paramWalletID)),
		ReferenceDate: sanitizeInput(query.Get(paramReferenceDate)),
		Streams:       sanitizeInput(query.Get(paramType)),
		Limit:         sanitizeInput(query.Get(paramLimit)),
	}
	if req.ReferenceDate == "" {
		req.ReferenceDate = now.UTC().Format(stats.DayLayout)
	}
	return req
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
