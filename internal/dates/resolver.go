package dates

import (
	"context"
	"fmt"
	"log/slog"
)

// Source identifies how a receipt's date was determined.
type Source int

const (
	// SourceExtracted means the extractor supplied a valid date.
	SourceExtracted Source = iota
	// SourceCarriedForward means the date was reused from an earlier receipt
	// in the same run.
	SourceCarriedForward
	// SourceUserSupplied means the operator was prompted for the date.
	SourceUserSupplied
)

func (s Source) String() string {
	switch s {
	case SourceExtracted:
		return "extracted"
	case SourceCarriedForward:
		return "carried_forward"
	case SourceUserSupplied:
		return "user_supplied"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Prompter solicits a date from the operator. Implementations are expected
// to re-prompt on malformed input; the resolver still validates whatever
// comes back.
type Prompter interface {
	AskDate(ctx context.Context) (string, error)
}

// Resolver assigns an authoritative canonical date to each receipt using a
// strict three-tier fallback: the extracted date if valid, otherwise the
// last date used in this run, otherwise an operator prompt. A malformed
// candidate is treated exactly like a missing one.
type Resolver struct {
	prompter Prompter
	lastUsed string
}

// NewResolver creates a resolver that falls back to prompter when neither an
// extracted nor a carried-forward date is available.
func NewResolver(prompter Prompter) *Resolver {
	return &Resolver{prompter: prompter}
}

// Last returns the most recently accepted date, or "" before any receipt has
// resolved.
func (r *Resolver) Last() string {
	return r.lastUsed
}

// Resolve returns the date to use for a receipt given the extractor's
// candidate. The candidate wins only if it is an exact canonical-format
// date; carry-forward models multi-day trip batches where only the first
// receipt has a legible date. Blocking on the operator can only happen for
// the very first unresolved receipt.
func (r *Resolver) Resolve(ctx context.Context, candidate string) (string, Source, error) {
	if ValidCanonical(candidate) {
		r.lastUsed = candidate
		return candidate, SourceExtracted, nil
	}

	if candidate != "" {
		slog.Warn("Discarding malformed extracted date", "candidate", candidate)
	}

	if r.lastUsed != "" {
		slog.Warn("Receipt has no usable date, carrying forward previous date",
			"date", r.lastUsed)
		return r.lastUsed, SourceCarriedForward, nil
	}

	for {
		entered, err := r.prompter.AskDate(ctx)
		if err != nil {
			return "", SourceUserSupplied, fmt.Errorf("prompting for date: %w", err)
		}
		if ValidCanonical(entered) {
			r.lastUsed = entered
			return entered, SourceUserSupplied, nil
		}
		slog.Warn("Rejecting operator date not in DD-MM-YYYY form", "entered", entered)
	}
}
