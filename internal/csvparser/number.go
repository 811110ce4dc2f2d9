package csvparser

import (
	"math"
	"strconv"
	"strings"
)

// Number coerces a cell value to float64. Strings may use a comma as the
// decimal separator (with dots as thousands separators) and scientific
// notation. Anything that is not a finite number yields 0; Number never
// fails.
func Number(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case string:
		return parseLocaleNumber(n)
	case []byte:
		return parseLocaleNumber(string(n))
	}
	return 0
}

// Int coerces a cell value to an int, truncating any fraction.
func Int(v interface{}) int {
	return int(Number(v))
}

// Flag reports whether a 0/1 dummy column is set.
func Flag(v interface{}) bool {
	return Number(v) == 1
}

func parseLocaleNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
