package formfill

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFill() config.FillConfig {
	return config.FillConfig{
		MaxAttempts:     3,
		RetryDelay:      0,
		FieldTimeout:    100 * time.Millisecond,
		DropdownTimeout: time.Second,
	}
}

func TestFillAndVerifyFirstAttempt(t *testing.T) {
	s := browser.NewScriptedSession()
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "merchant", Name: "merchant", Kind: KindText},
		Value{Text: "Cafe Roma"})

	require.True(t, out.Success)
	assert.Equal(t, 1, out.AttemptsUsed)
	assert.Equal(t, "Cafe Roma", s.Committed("merchant"))
}

func TestFillAndVerifyRetriesUntilReadBackMatches(t *testing.T) {
	s := browser.NewScriptedSession()
	// Two stale read-backs before the committed value shows through.
	s.ValueScript["amount"] = []string{"", "12.5"}
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "amount", Name: "amount", Kind: KindText},
		Value{Text: "12.50"})

	require.True(t, out.Success)
	assert.Equal(t, 3, out.AttemptsUsed)
}

func TestFillAndVerifyExhaustsAttempts(t *testing.T) {
	s := browser.NewScriptedSession()
	s.ValueScript["amount"] = []string{"1.00", "1.00", "1.00"}
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "amount", Name: "amount", Kind: KindText},
		Value{Text: "12.50"})

	require.False(t, out.Success)
	assert.Equal(t, 3, out.AttemptsUsed)
	assert.Contains(t, out.Diagnostic, "amount")
}

func TestFillAndVerifyFieldNeverVisible(t *testing.T) {
	s := browser.NewScriptedSession()
	s.Hidden["ghost"] = true
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "ghost", Name: "ghost field", Kind: KindText},
		Value{Text: "x"})

	require.False(t, out.Success)
	assert.Contains(t, out.Diagnostic, "not visible")
}

func TestFillAndVerifyPopulatesLazySelect(t *testing.T) {
	s := browser.NewScriptedSession()
	// Only the placeholder exists until the second activation lands.
	s.CountScript["type >> option"] = []int{1, 1, 6}
	s.Options["type"] = map[string]string{"Meals-Employee Only": "5"}
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "type", Name: "expense type", Kind: KindSelect, Populate: true},
		Value{Label: "Meals-Employee Only", Code: "5"})

	require.True(t, out.Success)
	assert.Equal(t, 1, out.AttemptsUsed)
	assert.Equal(t, "5", s.Committed("type"))

	clicks := 0
	for _, entry := range s.Log {
		if entry == "click type" {
			clicks++
		}
	}
	assert.Equal(t, 2, clicks, "lazy select must be activated twice")
}

func TestFillAndVerifySelectRejectsPlaceholder(t *testing.T) {
	s := browser.NewScriptedSession()
	s.ValueScript["type"] = []string{"0", "0", "0"}
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "type", Name: "expense type", Kind: KindSelect},
		Value{Label: "Travel-Airfare"})

	require.False(t, out.Success)
	assert.Contains(t, out.Diagnostic, "placeholder")
}

func TestFillAndVerifyTypedDate(t *testing.T) {
	s := browser.NewScriptedSession()
	s.ValueScript["date"] = []string{"19-Nov-2025"}
	d := NewDriver(s, testFill(), testLogger())

	out := d.FillAndVerify(context.Background(),
		Target{Descriptor: "date", Name: "date", Kind: KindTypedDate},
		Value{Text: "19-Nov-2025"})

	require.True(t, out.Success)
	assert.Contains(t, s.Log, "type 19-Nov-2025")
	assert.Contains(t, s.Log, "press Tab")
}
