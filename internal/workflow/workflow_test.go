package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/journal"
	"github.com/expenseops/autoexpense/internal/model"
)

type mockExtractor struct {
	records  map[string]*model.ReceiptRecord
	warnings map[string][]string
	errs     map[string]error
}

func (m *mockExtractor) Analyze(_ context.Context, path string) (*model.ReceiptRecord, []string, error) {
	name := filepath.Base(path)
	if err := m.errs[name]; err != nil {
		return nil, nil, err
	}
	rec, ok := m.records[name]
	if !ok {
		return nil, nil, common.ErrNoRecord
	}
	return rec, m.warnings[name], nil
}

type mockReports struct {
	found     bool
	items     []model.ExistingItem
	findErr   error
	createErr error
	purposes  []string
}

func (m *mockReports) FindOpen(context.Context) (bool, []model.ExistingItem, error) {
	return m.found, m.items, m.findErr
}

func (m *mockReports) Create(_ context.Context, purpose string) error {
	m.purposes = append(m.purposes, purpose)
	return m.createErr
}

type fillCall struct {
	path  string
	date  string
	first bool
}

type mockFiller struct {
	fillCalls   []fillCall
	failFills   map[string]bool
	advanceErrs []error
	advanced    int
	finalized   int
	finalizeErr error
}

func (m *mockFiller) FillItem(_ context.Context, _ *model.ReceiptRecord, date, path string, first bool) (model.FillOutcome, error) {
	m.fillCalls = append(m.fillCalls, fillCall{path: filepath.Base(path), date: date, first: first})
	if m.failFills[filepath.Base(path)] {
		return model.FillOutcome{AttemptsUsed: 3, Diagnostic: "expense type never committed"}, nil
	}
	return model.FillOutcome{Success: true, AttemptsUsed: 1}, nil
}

func (m *mockFiller) AdvanceNext(context.Context) error {
	m.advanced++
	if len(m.advanceErrs) > 0 {
		err := m.advanceErrs[0]
		m.advanceErrs = m.advanceErrs[1:]
		return err
	}
	return nil
}

func (m *mockFiller) Finalize(context.Context) error {
	m.finalized++
	return m.finalizeErr
}

type stubPrompter struct {
	answers []string
	err     error
}

func (p *stubPrompter) AskDate(context.Context) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if len(p.answers) == 0 {
		return "", errors.New("prompter exhausted")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

type fixture struct {
	extractor *mockExtractor
	reports   *mockReports
	filler    *mockFiller
	prompter  *stubPrompter
	journal   *journal.Journal
	cfg       Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "run.log"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return &fixture{
		extractor: &mockExtractor{records: map[string]*model.ReceiptRecord{}, warnings: map[string][]string{}, errs: map[string]error{}},
		reports:   &mockReports{found: true},
		filler:    &mockFiller{failFills: map[string]bool{}},
		prompter:  &stubPrompter{},
		journal:   j,
		cfg:       Config{HomeCity: "Portland"},
	}
}

func (f *fixture) workflow() *Workflow {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f.extractor, f.reports, f.filler, dates.NewResolver(f.prompter), f.journal, f.cfg, log)
}

func meal(amount model.Cents, merchant, date string) *model.ReceiptRecord {
	return &model.ReceiptRecord{
		ExpenseType: "MEAL",
		Amount:      amount,
		Currency:    "USD",
		Date:        date,
		Merchant:    merchant,
		Description: merchant + " receipt",
	}
}

func TestRunFilesAllReceipts(t *testing.T) {
	f := newFixture(t)
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")
	f.extractor.records["c.jpg"] = meal(4200, "Bistro", "21-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg", "c.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, 0, state.Skipped)
	assert.Equal(t, 0, state.Duplicates)
	assert.Equal(t, model.Cents(6350), state.TotalsByCurrency["USD"])
	assert.True(t, state.Succeeded())

	require.Len(t, f.filler.fillCalls, 3)
	assert.True(t, f.filler.fillCalls[0].first)
	assert.False(t, f.filler.fillCalls[1].first)
	assert.False(t, f.filler.fillCalls[2].first)
	assert.Equal(t, 2, f.filler.advanced)
	assert.Equal(t, 1, f.filler.finalized, "save and close must run exactly once")

	entries := f.journal.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, journal.StatusCreated, e.Status)
		assert.Equal(t, "extracted", e.DateSource)
	}
}

func TestRunSkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.reports.items = []model.ExistingItem{
		{Amount: 1250, Merchant: "Cafe Roma Downtown", Date: "19-Nov-2025"},
	}
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Duplicates)
	assert.Equal(t, 1, state.Processed)
	require.Len(t, f.filler.fillCalls, 1)
	assert.Equal(t, "b.jpg", f.filler.fillCalls[0].path)
	// Totals still count the duplicate; the money was spent either way.
	assert.Equal(t, model.Cents(2150), state.TotalsByCurrency["USD"])
}

func TestRunDetectsDuplicateFiledEarlierInSameRun(t *testing.T) {
	f := newFixture(t)
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, 1, state.Duplicates)
	require.Len(t, f.filler.fillCalls, 1)
}

func TestRunCarriesDateForward(t *testing.T) {
	f := newFixture(t)
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 2, state.Processed)
	assert.Equal(t, "19-11-2025", state.LastUsedDate)

	entries := f.journal.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "carried_forward", entries[1].DateSource)
	assert.Equal(t, "19-11-2025", entries[1].Date)
}

func TestRunAsksOperatorWhenNoDateAnywhere(t *testing.T) {
	f := newFixture(t)
	f.prompter.answers = []string{"not a date", "15-01-2025"}
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Processed)

	entries := f.journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "user_supplied", entries[0].DateSource)
	assert.Equal(t, "15-01-2025", entries[0].Date)
}

func TestRunStopsWhenPromptFails(t *testing.T) {
	f := newFixture(t)
	f.prompter.err = errors.New("input closed")
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)

	// The rest of the batch would stall on the same unanswered question.
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 0, state.Processed)
	assert.Empty(t, f.filler.fillCalls)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true
	f.reports.found = false
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Processed)
	assert.Empty(t, f.filler.fillCalls)
	assert.Empty(t, f.reports.purposes)
	assert.Equal(t, 0, f.filler.finalized)
	assert.Equal(t, journal.StatusPrepared, f.journal.Entries()[0].Status)
}

func TestRunAbortsWhenReportLookupFails(t *testing.T) {
	f := newFixture(t)
	f.reports.findErr = errors.New("portal down")

	_, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	assert.ErrorIs(t, err, common.ErrNoReport)
	assert.Empty(t, f.filler.fillCalls)
}

func TestRunCreatesReportWithDerivedPurpose(t *testing.T) {
	f := newFixture(t)
	f.reports.found = false
	rec := meal(50000, "Acme Airlines", "19-11-2025")
	rec.ExpenseType = "AIRFARE"
	rec.ArrivalCity = "Denver"
	f.extractor.records["a.jpg"] = rec

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, []string{"Trip to Denver"}, f.reports.purposes)
}

func TestRunAbortsWhenReportCreationFails(t *testing.T) {
	f := newFixture(t)
	f.reports.found = false
	f.reports.createErr = errors.New("create button missing")
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	assert.ErrorIs(t, err, common.ErrNoReport)
	assert.Equal(t, 1, state.Skipped)
	assert.Empty(t, f.filler.fillCalls)
	assert.Equal(t, journal.StatusFailed, f.journal.Entries()[0].Status)
}

func TestRunRecoversFromAdvanceFailure(t *testing.T) {
	f := newFixture(t)
	f.filler.advanceErrs = []error{errors.New("button lost focus")}
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 2, state.Processed)

	require.Len(t, f.filler.fillCalls, 2)
	assert.True(t, f.filler.fillCalls[1].first, "a failed advance must reopen the form")
}

func TestRunFinalizesAfterTrailingFailure(t *testing.T) {
	f := newFixture(t)
	f.filler.failFills["b.jpg"] = true
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 1, f.filler.finalized, "the item that did land must still be saved")
}

func TestRunSkipsUnreadableReceipt(t *testing.T) {
	f := newFixture(t)
	f.extractor.errs["a.jpg"] = common.ErrNoRecord
	f.extractor.records["b.jpg"] = meal(900, "Deli", "20-11-2025")

	state, err := f.workflow().Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, journal.StatusFailed, f.journal.Entries()[0].Status)
}

func TestRunInterruptedBeforeAnyFill(t *testing.T) {
	f := newFixture(t)
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := f.workflow().Run(ctx, []string{"a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 0, state.Processed)
	assert.Equal(t, 0, f.filler.finalized)
	assert.Empty(t, f.filler.fillCalls)
}

func TestRunSurfacesRejectedSave(t *testing.T) {
	f := newFixture(t)
	f.filler.finalizeErr = &common.RemoteRejection{Message: "A value is required for Date."}
	f.extractor.records["a.jpg"] = meal(1250, "Cafe Roma", "19-11-2025")

	_, err := f.workflow().Run(context.Background(), []string{"a.jpg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReportRejected)
}
