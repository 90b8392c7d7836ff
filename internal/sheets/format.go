package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"finanze/internal/core"
)

// Strftime formats t with a strftime style format such as the ones found in
// datetimeFormat and dateFormat.
func Strftime(t time.Time, format string) string {
	return timefmt.Format(t, format)
}

func formatTime(t time.Time, cfg core.SheetConfig) string {
	if t.IsZero() {
		return ""
	}
	if dateOnly(t) {
		if cfg.DateFormat != nil && *cfg.DateFormat != "" {
			return Strftime(t, *cfg.DateFormat)
		}
		return t.Format(time.DateOnly)
	}
	if cfg.DatetimeFormat != nil && *cfg.DatetimeFormat != "" {
		return Strftime(t, *cfg.DatetimeFormat)
	}
	return t.Format(time.RFC3339)
}

// FormatValue renders a record value the way it is written to a cell.
func FormatValue(v any, cfg core.SheetConfig) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return formatTime(x, cfg)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(*x, cfg)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strings.ToUpper(strconv.FormatBool(x))
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// parseAmount accepts both "1234.56" and "1.234,56".
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Contains(s, ",") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return strconv.ParseFloat(s, 64)
}

// parseTime reads a cell written with the configured formats, falling back to
// the formats used when none is configured.
func parseTime(s string, cfg core.SheetConfig) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range []*string{cfg.DatetimeFormat, cfg.DateFormat} {
		if f == nil || *f == "" {
			continue
		}
		if t, err := timefmt.ParseInLocation(s, *f, time.UTC); err == nil {
			return t, nil
		}
	}
	for _, l := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
