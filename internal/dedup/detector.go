// Package dedup decides whether a candidate receipt is already present in
// the open expense report, preventing double-filing across runs.
package dedup

import (
	"strings"

	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/model"
)

// IsDuplicate reports whether a candidate (amount, merchant, canonical date)
// matches an item already in the report.
//
// An exact monetary match (within one cent, compared in integer cents) is
// the gating signal; merchant and date only raise confidence, because
// extraction of merchant/date text is the least reliable part of the
// pipeline. Merchant comparison is a case-insensitive substring relationship
// in either direction, tolerating truncation in how the portal renders
// names. When a date is present on both sides it must match after
// normalizing to the portal's display format; if normalization fails the
// check degrades to amount+merchant. When merchant information is missing on
// either side, the amount match alone counts; skipping a possible true
// duplicate is preferred over filing twice.
func IsDuplicate(amount model.Cents, merchant, canonicalDate string, existing []model.ExistingItem) bool {
	remoteDate, dateErr := dates.ToRemote(canonicalDate)

	for _, item := range existing {
		if !item.Amount.WithinOneCent(amount) {
			continue
		}

		if !merchantsCompatible(merchant, item.Merchant) {
			continue
		}

		if dateErr == nil && item.Date != "" {
			if item.Date != remoteDate {
				continue
			}
		}

		return true
	}
	return false
}

// merchantsCompatible applies the substring match when both names exist; a
// blank name on either side never blocks a match.
func merchantsCompatible(candidate, existing string) bool {
	a := strings.ToLower(strings.TrimSpace(candidate))
	b := strings.ToLower(strings.TrimSpace(existing))
	if a == "" || b == "" {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
