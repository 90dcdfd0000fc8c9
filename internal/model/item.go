package model

// ExistingItem is a snapshot of one line item already present in the open
// expense report. Items are captured when the report is opened (or appended
// after a successful fill) and are read-only afterward; together they form
// the duplicate-detection universe for the rest of the run.
type ExistingItem struct {
	Amount      Cents
	Merchant    string
	Date        string // remote display format, e.g. "19-Nov-2025"
	Description string
}

// FillOutcome is the transient result of driving one form control (or one
// whole item) through the fill-and-verify protocol. It is consumed
// immediately by the caller and never persisted.
type FillOutcome struct {
	Success      bool
	AttemptsUsed int
	Diagnostic   string
}
