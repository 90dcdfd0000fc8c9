package dates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter returns queued responses in order.
type scriptedPrompter struct {
	responses []string
	asked     int
}

func (p *scriptedPrompter) AskDate(_ context.Context) (string, error) {
	if p.asked >= len(p.responses) {
		return "", context.Canceled
	}
	r := p.responses[p.asked]
	p.asked++
	return r, nil
}

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
	}{
		{name: "valid", in: "15-01-2025", valid: true},
		{name: "valid end of month", in: "31-12-2024", valid: true},
		{name: "not zero padded", in: "5-1-2025", valid: false},
		{name: "iso order", in: "2025-01-15", valid: false},
		{name: "month out of range", in: "15-13-2025", valid: false},
		{name: "garbage", in: "yesterday", valid: false},
		{name: "empty", in: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCanonical(tt.in))
		})
	}
}

func TestToRemote(t *testing.T) {
	got, err := ToRemote("19-11-2025")
	require.NoError(t, err)
	assert.Equal(t, "19-Nov-2025", got)

	_, err = ToRemote("not-a-date")
	assert.Error(t, err)
}

func TestResolveExtractedDate(t *testing.T) {
	r := NewResolver(&scriptedPrompter{})

	date, source, err := r.Resolve(context.Background(), "15-01-2025")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceExtracted, source)
	assert.Equal(t, "15-01-2025", r.Last())
}

func TestResolveCarriesForward(t *testing.T) {
	r := NewResolver(&scriptedPrompter{})

	_, _, err := r.Resolve(context.Background(), "15-01-2025")
	require.NoError(t, err)

	// Missing date falls back to the previous one.
	date, source, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceCarriedForward, source)

	// A malformed date behaves exactly like a missing one.
	date, source, err = r.Resolve(context.Background(), "01/15/2025")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceCarriedForward, source)
}

func TestResolvePromptsOperator(t *testing.T) {
	prompter := &scriptedPrompter{responses: []string{"15-01-2025"}}
	r := NewResolver(prompter)

	date, source, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceUserSupplied, source)
	assert.Equal(t, 1, prompter.asked)

	// Subsequent receipts reuse the operator-supplied date.
	date, source, err = r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceCarriedForward, source)
}

func TestResolveLoopsOnInvalidOperatorInput(t *testing.T) {
	prompter := &scriptedPrompter{responses: []string{"jan 15", "15/01/2025", "15-01-2025"}}
	r := NewResolver(prompter)

	date, source, err := r.Resolve(context.Background(), "bogus")
	require.NoError(t, err)
	assert.Equal(t, "15-01-2025", date)
	assert.Equal(t, SourceUserSupplied, source)
	assert.Equal(t, 3, prompter.asked)
}

func TestResolvePropagatesPromptError(t *testing.T) {
	r := NewResolver(&scriptedPrompter{}) // empty script returns context.Canceled

	_, _, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, context.Canceled)
}
