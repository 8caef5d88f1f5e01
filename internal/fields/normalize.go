package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sunghoon-yu/tradedocs/constants"
)

var (
	reKoreanDate  = regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일?`)
	reAmountNoise = regexp.MustCompile(`(?i)[₩$¥€,\s]|원|krw|won`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"2006-1-2",
	"2006.1.2",
	"2006/1/2",
	"20060102",
	"02-01-2006",
	"01/02/2006",
}

// NormalizeAmount strips currency separators and ₩/원/KRW style
// suffixes and parses the remainder as a number.
func NormalizeAmount(raw string) (float64, bool) {
	clean := reAmountNoise.ReplaceAllString(strings.TrimSpace(raw), "")
	if clean == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeDate converts the supported calendar representations
// (ISO, dotted, slashed and 2024년 1월 15일 forms) to YYYY-MM-DD.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if m := reKoreanDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// Normalize produces the canonical comparison form of a raw value for
// the given field definition. Numeric fields get the parsed number
// back as well. ok is false when the value cannot be interpreted as
// the declared type.
func Normalize(def FieldDef, raw string) (value string, number *float64, ok bool) {
	trimmed := strings.Join(strings.Fields(raw), " ")
	switch def.Type {
	case constants.FieldNumber:
		f, parsed := NormalizeAmount(trimmed)
		if !parsed {
			return "", nil, false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), &f, true
	case constants.FieldDate:
		d, parsed := NormalizeDate(trimmed)
		if !parsed {
			return "", nil, false
		}
		return d, nil, true
	default:
		if trimmed == "" {
			return "", nil, false
		}
		return trimmed, nil, true
	}
}

// Equal reports whether two raw values agree after normalization.
func Equal(def FieldDef, a, b string) bool {
	na, _, okA := Normalize(def, a)
	nb, _, okB := Normalize(def, b)
	if !okA || !okB {
		// fall back to a case-insensitive raw comparison
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if def.Type == constants.FieldText {
		return strings.EqualFold(na, nb)
	}
	return na == nb
}
