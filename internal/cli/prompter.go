package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/expenseops/autoexpense/internal/journal"
	"github.com/expenseops/autoexpense/internal/model"
)

// Prompter asks the operator for the inputs a run cannot derive on its own
// and renders the end-of-run summary.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter over the given streams. Nil streams default
// to stdin and stdout.
func NewPrompter(input io.Reader, output io.Writer) *Prompter {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}
	return &Prompter{
		reader: NewNonBlockingReader(input),
		writer: output,
	}
}

// AskDate asks for a receipt date. The caller validates and re-asks, so one
// question per call is enough.
func (p *Prompter) AskDate(ctx context.Context) (string, error) {
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, RenderBox("Date needed",
		"No date could be read from this receipt and no earlier receipt set one."))
	fmt.Fprint(p.writer, FormatPrompt("Receipt date (DD-MM-YYYY)"))

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// AskFolder asks for the receipts folder, offering the previous run's folder
// as the default.
func (p *Prompter) AskFolder(ctx context.Context, lastFolder string) (string, error) {
	if lastFolder != "" {
		fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("Receipts folder [%s]", lastFolder)))
	} else {
		fmt.Fprint(p.writer, FormatPrompt("Receipts folder"))
	}

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return lastFolder, nil
	}
	return answer, nil
}

// ShowSummary renders the per-receipt outcomes and the currency totals.
func (p *Prompter) ShowSummary(entries []journal.ReceiptEntry, totals map[string]model.Cents, dryRun bool) {
	title := "Run summary"
	if dryRun {
		title = "Run summary (dry run, nothing was filed)"
	}
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, FormatTitle(title))

	if len(entries) == 0 {
		fmt.Fprintln(p.writer, SubtleStyle.Render("No receipts were processed."))
		return
	}

	header := fmt.Sprintf("%-3s %-24s %-10s %-18s %12s  %-12s %s",
		"", "Receipt", "Type", "Merchant", "Amount", "Date", "Outcome")
	rows := []string{TableHeaderStyle.Render(header)}
	for _, e := range entries {
		amount := e.TotalAmount
		if amount != "" && e.Currency != "" {
			amount = amount + " " + e.Currency
		}
		row := fmt.Sprintf("%-3s %-24s %-10s %-18s %12s  %-12s %s",
			statusIcon(e.Status),
			truncate(e.Filename, 24),
			e.ExpenseType,
			truncate(e.Merchant, 18),
			amount,
			e.Date,
			statusText(e.Status))
		rows = append(rows, TableCellStyle.Render(row))
	}
	fmt.Fprintln(p.writer, lipgloss.JoinVertical(lipgloss.Left, rows...))

	if len(totals) > 0 {
		currencies := make([]string, 0, len(totals))
		for c := range totals {
			currencies = append(currencies, c)
		}
		sort.Strings(currencies)

		parts := make([]string, 0, len(currencies))
		for _, c := range currencies {
			parts = append(parts, fmt.Sprintf("%s %s", totals[c].String(), c))
		}
		fmt.Fprintln(p.writer, InfoStyle.Render("Total: "+strings.Join(parts, ", ")))
	}
}

func statusIcon(status string) string {
	switch status {
	case journal.StatusCreated, journal.StatusPrepared:
		return SuccessStyle.Render(SuccessIcon)
	case journal.StatusDuplicate:
		return SubtleStyle.Render("=")
	case journal.StatusFailed, journal.StatusSkipped:
		return ErrorStyle.Render(ErrorIcon)
	default:
		return " "
	}
}

func statusText(status string) string {
	switch status {
	case journal.StatusCreated:
		return SuccessStyle.Render("created")
	case journal.StatusPrepared:
		return InfoStyle.Render("prepared")
	case journal.StatusDuplicate:
		return SubtleStyle.Render("already in report")
	case journal.StatusSkipped:
		return WarningStyle.Render("skipped")
	case journal.StatusFailed:
		return ErrorStyle.Render("failed")
	default:
		return status
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
