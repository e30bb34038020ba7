package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

// refDate resolves the reference day for month-scoped endpoints. An empty
// value means today in the server's timezone.
func (s *Server) refDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.now().In(s.loc), nil
	}
	key, err := core.NormalizeToDateKey(value)
	if err != nil {
		return time.Time{}, err
	}
	return core.ParseDateKey(key, s.loc)
}

// refDateQuery reads the "date" query parameter through refDate.
func (s *Server) refDateQuery(r *http.Request) (time.Time, error) {
	return s.refDate(r.URL.Query().Get("date"))
}

// parseRange reads from/to, defaulting each missing bound to the bounds of
// the current month.
func (s *Server) parseRange(query url.Values) (core.DateRange, error) {
	rng := core.CurrentMonthRange(s.now().In(s.loc))
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		key, err := core.NormalizeToDateKey(v)
		if err != nil {
			return core.DateRange{}, err
		}
		rng.Start = key
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		key, err := core.NormalizeToDateKey(v)
		if err != nil {
			return core.DateRange{}, err
		}
		rng.End = key
	}
	return rng, rng.Validate()
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(input string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}
