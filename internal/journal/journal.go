// Package journal appends a JSONL audit trail of every receipt the run
// touched, plus one summary line per run. The journal is the durable record
// of what was filed; the terminal summary is rebuilt from the same entries.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/expenseops/autoexpense/internal/model"
)

// Receipt statuses recorded in the journal.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	// StatusPrepared marks a dry run entry that would have been created.
	StatusPrepared = "prepared"
)

// ReceiptEntry is one journal line describing the outcome for one receipt.
type ReceiptEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Filename      string    `json:"filename"`
	Index         int       `json:"index"`
	TotalReceipts int       `json:"total_receipts"`
	Status        string    `json:"status"`

	ExpenseType string   `json:"expense_type,omitempty"`
	TotalAmount string   `json:"total_amount,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Merchant    string   `json:"merchant,omitempty"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date,omitempty"`
	DateSource  string   `json:"date_source,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Error       string   `json:"error,omitempty"`

	// RawResponse is only recorded in verbose mode.
	RawResponse string `json:"raw_response,omitempty"`
}

type summaryEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	RunSummary bool              `json:"run_summary"`
	Totals     map[string]string `json:"totals"`
	Processed  int               `json:"processed"`
	Skipped    int               `json:"skipped"`
	Duplicates int               `json:"duplicates"`
}

// Journal writes entries to an append-only JSONL file.
type Journal struct {
	mu      sync.Mutex
	f       *os.File
	verbose bool
	entries []ReceiptEntry
}

// Open opens or creates the journal file for appending. With verbose set,
// receipt entries keep the extractor's raw response.
func Open(path string, verbose bool) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Journal{f: f, verbose: verbose}, nil
}

// Receipt appends one receipt entry.
func (j *Journal) Receipt(e ReceiptEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if !j.verbose {
		e.RawResponse = ""
	}
	j.entries = append(j.entries, e)
	return j.write(e)
}

// Summary appends the run summary line. Totals are keyed by currency.
func (j *Journal) Summary(totals map[string]model.Cents, processed, skipped, duplicates int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rendered := make(map[string]string, len(totals))
	for currency, amount := range totals {
		rendered[currency] = amount.String()
	}
	return j.write(summaryEntry{
		Timestamp:  time.Now(),
		RunSummary: true,
		Totals:     rendered,
		Processed:  processed,
		Skipped:    skipped,
		Duplicates: duplicates,
	})
}

// Entries returns the receipt entries recorded during this run, in order.
func (j *Journal) Entries() []ReceiptEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ReceiptEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

func (j *Journal) write(v any) error {
	if j.f == nil {
		return fmt.Errorf("journal is closed")
	}
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	if _, err := j.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return nil
}
