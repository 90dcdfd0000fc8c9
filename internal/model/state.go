package model

// WorkflowState is the mutable per-run aggregate owned exclusively by the
// workflow orchestrator. It is a plain value so separate runs (and tests)
// never share counters.
type WorkflowState struct {
	LastUsedDate     string
	TotalsByCurrency map[string]Cents
	Processed        int
	Skipped          int
	Duplicates       int
	ExistingItems    []ExistingItem
}

// NewWorkflowState returns an empty state ready for a run.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{
		TotalsByCurrency: make(map[string]Cents),
	}
}

// AddTotal accumulates an amount under its currency.
func (s *WorkflowState) AddTotal(currency string, amount Cents) {
	if currency == "" {
		currency = "USD"
	}
	s.TotalsByCurrency[currency] += amount
}

// AppendItem records a successfully submitted item so later receipts in the
// same run are checked against it.
func (s *WorkflowState) AppendItem(item ExistingItem) {
	s.ExistingItems = append(s.ExistingItems, item)
}

// Succeeded reports whether the run as a whole achieved anything: at least
// one item was created or recognized as already filed.
func (s *WorkflowState) Succeeded() bool {
	return s.Processed+s.Duplicates > 0
}
