// Package workflow orchestrates a full run: extract every receipt, resolve
// its date, skip duplicates, file the rest into the report, and close the
// report exactly once at the end.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/dedup"
	"github.com/expenseops/autoexpense/internal/journal"
	"github.com/expenseops/autoexpense/internal/model"
	"github.com/expenseops/autoexpense/internal/report"
)

// Extractor analyzes one receipt image into a record plus repair warnings.
type Extractor interface {
	Analyze(ctx context.Context, imagePath string) (*model.ReceiptRecord, []string, error)
}

// ReportManager finds or creates the expense report the items go into.
type ReportManager interface {
	FindOpen(ctx context.Context) (found bool, items []model.ExistingItem, err error)
	Create(ctx context.Context, purpose string) error
}

// ItemFiller files one item at a time and controls the form lifecycle.
type ItemFiller interface {
	FillItem(ctx context.Context, rec *model.ReceiptRecord, canonicalDate, receiptPath string, first bool) (model.FillOutcome, error)
	AdvanceNext(ctx context.Context) error
	Finalize(ctx context.Context) error
}

// Config carries the run-level knobs.
type Config struct {
	DryRun   bool
	HomeCity string
}

// Workflow runs the receipt pipeline over one batch of images.
type Workflow struct {
	extractor Extractor
	reports   ReportManager
	filler    ItemFiller
	resolver  *dates.Resolver
	journal   *journal.Journal
	cfg       Config
	log       *slog.Logger
}

// New wires a workflow.
func New(extractor Extractor, reports ReportManager, filler ItemFiller, resolver *dates.Resolver, jrnl *journal.Journal, cfg Config, log *slog.Logger) *Workflow {
	return &Workflow{
		extractor: extractor,
		reports:   reports,
		filler:    filler,
		resolver:  resolver,
		journal:   jrnl,
		cfg:       cfg,
		log:       log,
	}
}

// Run processes the receipts in order and returns the final state. An error
// is returned only for run-level aborts (no report to work in); per-receipt
// failures are counted and journaled instead.
func (w *Workflow) Run(ctx context.Context, paths []string) (*model.WorkflowState, error) {
	state := model.NewWorkflowState()
	defer func() {
		state.LastUsedDate = w.resolver.Last()
		if err := w.journal.Summary(state.TotalsByCurrency, state.Processed, state.Skipped, state.Duplicates); err != nil {
			w.log.Warn("run summary not journaled", "error", err)
		}
	}()

	found, items, err := w.reports.FindOpen(ctx)
	if err != nil {
		return state, fmt.Errorf("%w: %v", common.ErrNoReport, err)
	}
	state.ExistingItems = items

	reportReady := found
	// formOpen tracks whether an item form is on screen; the first fill of a
	// fresh form must open one, later fills reuse the form Create Another
	// leaves behind.
	formOpen := false
	filedAny := false

	for i, path := range paths {
		if ctx.Err() != nil {
			w.log.Info("run interrupted", "remaining", len(paths)-i)
			break
		}
		name := filepath.Base(path)
		entry := journal.ReceiptEntry{
			Filename:      name,
			Index:         i + 1,
			TotalReceipts: len(paths),
		}

		rec, warnings, err := w.extractor.Analyze(ctx, path)
		if err != nil {
			w.log.Warn("receipt not extracted", "receipt", name, "error", err)
			state.Skipped++
			entry.Status = journal.StatusFailed
			entry.Error = err.Error()
			w.journalEntry(entry)
			continue
		}
		entry.ExpenseType = rec.ExpenseType
		entry.TotalAmount = rec.Amount.String()
		entry.Currency = rec.Currency
		entry.Merchant = rec.Merchant
		entry.Description = rec.Description
		entry.Warnings = warnings
		entry.RawResponse = rec.RawResponse

		date, source, err := w.resolver.Resolve(ctx, rec.Date)
		if err != nil {
			// No date means no item; without operator input the rest of the
			// batch would all stall on the same question.
			w.log.Warn("no date resolved, stopping", "receipt", name, "error", err)
			state.Skipped++
			entry.Status = journal.StatusSkipped
			entry.Error = err.Error()
			w.journalEntry(entry)
			break
		}
		entry.Date = date
		entry.DateSource = source.String()

		state.AddTotal(rec.Currency, rec.Amount)

		if dedup.IsDuplicate(rec.Amount, rec.Merchant, date, state.ExistingItems) {
			w.log.Info("duplicate receipt", "receipt", name, "merchant", rec.Merchant)
			state.Duplicates++
			entry.Status = journal.StatusDuplicate
			w.journalEntry(entry)
			continue
		}

		if w.cfg.DryRun {
			state.Processed++
			entry.Status = journal.StatusPrepared
			w.journalEntry(entry)
			continue
		}

		// Report creation waits for the first receipt that needs filing so
		// the purpose can be derived from where the trip actually went.
		if !reportReady {
			if err := w.reports.Create(ctx, report.PurposeFor(rec, w.cfg.HomeCity)); err != nil {
				state.Skipped++
				entry.Status = journal.StatusFailed
				entry.Error = err.Error()
				w.journalEntry(entry)
				return state, fmt.Errorf("%w: %v", common.ErrNoReport, err)
			}
			reportReady = true
		}

		outcome, err := w.filler.FillItem(ctx, rec, date, path, !formOpen)
		formOpen = true
		if err != nil || !outcome.Success {
			diag := outcome.Diagnostic
			if err != nil {
				diag = err.Error()
			}
			w.log.Warn("item not filed", "receipt", name, "diagnostic", diag)
			state.Skipped++
			entry.Status = journal.StatusFailed
			entry.Error = diag
			w.journalEntry(entry)
			continue
		}

		state.Processed++
		filedAny = true
		if remote, err := dates.ToRemote(date); err == nil {
			state.AppendItem(model.ExistingItem{
				Amount:      rec.Amount,
				Merchant:    rec.Merchant,
				Date:        remote,
				Description: rec.Description,
			})
		}
		entry.Status = journal.StatusCreated
		w.journalEntry(entry)

		if i < len(paths)-1 {
			if err := w.filler.AdvanceNext(ctx); err != nil {
				w.log.Warn("create another failed, reopening form for next receipt", "error", err)
				formOpen = false
			}
		}
	}

	if filedAny && !w.cfg.DryRun {
		if ctx.Err() != nil {
			w.log.Warn("interrupted before save, report left open in the portal")
			return state, nil
		}
		if err := w.filler.Finalize(ctx); err != nil {
			w.log.Error("save and close failed", "error", err)
			return state, err
		}
	}
	return state, nil
}

func (w *Workflow) journalEntry(entry journal.ReceiptEntry) {
	if err := w.journal.Receipt(entry); err != nil {
		w.log.Warn("receipt not journaled", "receipt", entry.Filename, "error", err)
	}
}
