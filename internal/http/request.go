package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"finanze/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v. Malformed bodies are reported as
// core.ErrInvalidRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errors.Wrapf(core.ErrInvalidRequest, "unsupported content type %q", ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrap(core.ErrInvalidRequest, "empty body")
		}
		return errors.Wrapf(core.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}

// pathID returns the trimmed {id} route variable.
func pathID(r *http.Request) (string, error) {
	id := sanitizeInput(mux.Vars(r)["id"])
	if id == "" {
		return "", errors.Wrap(core.ErrInvalidRequest, "id is required")
	}
	return id, nil
}

// pollTimeout reads the optional timeout query parameter, capped at max.
func pollTimeout(r *http.Request, max time.Duration) time.Duration {
	raw := strings.TrimSpace(r.URL.Query().Get("timeout"))
	if raw == "" {
		return max
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 || d > max {
		return max
	}
	return d
}

// queryList collects a repeatable, comma separated query parameter.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = sanitizeInput(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseDataQuery(r *http.Request) core.DataQuery {
	return core.DataQuery{
		Entities: queryList(r, "entity"),
		Excluded: queryList(r, "excluded_entity"),
	}
}

// parseTransactionQuery reads the entity, type, date and paging filters.
// Dates are YYYY-MM-DD or RFC 3339; a bare to_date includes the whole day.
func parseTransactionQuery(r *http.Request) (core.TransactionQuery, error) {
	q := core.TransactionQuery{DataQuery: parseDataQuery(r), Types: queryList(r, "type")}
	values := r.URL.Query()

	var err error
	if q.From, err = queryDate(values.Get("from_date"), false); err != nil {
		return q, err
	}
	if q.To, err = queryDate(values.Get("to_date"), true); err != nil {
		return q, err
	}
	for key, dst := range map[string]*int{"page": &q.Page, "limit": &q.Limit} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.Wrapf(core.ErrInvalidRequest, "%s %q", key, raw)
		}
		*dst = n
	}
	return q, nil
}

func queryDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errors.Wrapf(core.ErrInvalidRequest, "date %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
