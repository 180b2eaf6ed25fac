package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reSecret = regexp.MustCompile(`^[\x21-\x7E]{1,72}$`)
)

// ID validates a product identifier taken from a path or form.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Name validates a product display name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 60 {
		return "", false
	}
	return s, true
}

// Price accepts non-negative amounts; the catalog rounds to cents.
func Price(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(decimal.NewFromInt(1_000_000))
}

// MaxQty bounds a single cart request.
const MaxQty = 100

// Qty accepts a requested cart quantity in [1, MaxQty].
func Qty(n int) (int, bool) {
	if n < 1 || n > MaxQty {
		return 0, false
	}
	return n, true
}

// Index parses a zero-based line index from a path segment.
func Index(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Invoice parses an invoice number from a path segment.
func Invoice(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Date parses a calendar day (YYYY-MM-DD) in loc.
func Date(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Secret enforces printable ASCII within bcrypt's 72 byte limit.
func Secret(s string) bool {
	return reSecret.MatchString(s)
}

// URL is opaque display metadata; only the length is bounded.
func URL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, len(s) <= 2048
}
