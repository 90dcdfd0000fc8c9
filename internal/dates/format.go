// Package dates owns the date formats used between the extractor, the
// duplicate detector and the form driver, and the fallback logic that
// assigns an authoritative date to every receipt.
package dates

import "time"

const (
	// CanonicalLayout is the internal day-month-year format, e.g. "15-01-2025".
	CanonicalLayout = "02-01-2006"
	// RemoteLayout is the format the portal renders in its item list,
	// e.g. "15-Jan-2025".
	RemoteLayout = "02-Jan-2006"
	// RowLayout is the short format accepted by nightly breakdown rows,
	// e.g. "15-Jan-25".
	RowLayout = "02-Jan-06"
)

// ParseCanonical parses a canonical-format date. Matching is exact: a string
// that parses but does not round-trip to the same text (e.g. "5-1-2025") is
// rejected, so an ambiguous day/month order can never be silently accepted.
func ParseCanonical(s string) (time.Time, error) {
	t, err := time.Parse(CanonicalLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Format(CanonicalLayout) != s {
		return time.Time{}, &time.ParseError{
			Layout: CanonicalLayout, Value: s, Message: ": not in canonical form",
		}
	}
	return t, nil
}

// ValidCanonical reports whether s is an exact canonical-format date.
func ValidCanonical(s string) bool {
	_, err := ParseCanonical(s)
	return err == nil
}

// ToRemote converts a canonical date to the portal's display format.
func ToRemote(canonical string) (string, error) {
	t, err := ParseCanonical(canonical)
	if err != nil {
		return "", err
	}
	return t.Format(RemoteLayout), nil
}

// ToRow renders a time in the short format used by breakdown row inputs.
func ToRow(t time.Time) string {
	return t.Format(RowLayout)
}
