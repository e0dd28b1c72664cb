package domain

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ParseID reads an integer identifier from a raw JSON value. Numbers and
// numeric strings are accepted; null, blank strings and anything else report
// false.
func ParseID(raw []byte) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return 0, false
		}
		text = strings.TrimSpace(unquoted)
	}
	if text == "" || text == "null" {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return n, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	// float64(math.MaxInt64) is 2^63, which is already out of range.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// IsNull reports whether raw is the JSON literal null (or nothing at all).
func IsNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
