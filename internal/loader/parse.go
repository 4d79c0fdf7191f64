package loader

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order; the dataset normally uses the first one
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// isMissing reports whether a raw cell holds no value
func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "nan", "NA", "NaT", "<nil>", "null":
		return true
	}
	return false
}

// parseDate parses a timestamp permissively. ok is false when the cell is
// non-empty but matches no layout.
func parseDate(s string) (t time.Time, ok bool) {
	if isMissing(s) {
		return time.Time{}, true
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	if isMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseOptionalFloat(s string) *float64 {
	v, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &v
}

// parseOptionalInt accepts "3" as well as the "3.0" pandas writes for
// integer columns containing NaN
func parseOptionalInt(s string) *int {
	v, ok := parseFloat(s)
	if !ok {
		return nil
	}
	n := int(v)
	if float64(n) != v {
		return nil
	}
	return &n
}

func parseString(s string) string {
	if isMissing(s) {
		return ""
	}
	return strings.TrimSpace(s)
}
