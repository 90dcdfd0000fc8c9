package report

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/model"
)

var (
	// Item amounts render alongside a currency symbol and thousand
	// separators, e.g. "$1,234.56 USD".
	amountPattern = regexp.MustCompile(`(\d+[,\d]*\.?\d*)`)
	// Item dates render in the portal's display format, e.g. "19-Nov-2025".
	datePattern = regexp.MustCompile(`\d{1,2}-[A-Z][a-z]{2}-\d{4}`)
)

// ScanExisting reads every rendered item row from the open report. Scanning
// is read-only and idempotent; rows the scanner cannot make sense of are
// skipped rather than failing the run.
func (m *Manager) ScanExisting(ctx context.Context) ([]model.ExistingItem, error) {
	sel := m.cfg.Portal.Selectors.Reports

	if err := m.session.WaitSettle(ctx, 10*time.Second); err != nil {
		m.log.Debug("page did not settle before scan", "error", err)
	}
	// An open report can legitimately hold zero items.
	if err := m.session.WaitVisible(ctx, sel.ItemRow, 3*time.Second); err != nil {
		return nil, nil
	}

	n, err := m.session.Count(ctx, sel.ItemRow)
	if err != nil {
		return nil, err
	}

	var items []model.ExistingItem
	for i := 0; i < n; i++ {
		row := browser.Nth(sel.ItemRow, i)
		item, ok := m.scanRow(ctx, row)
		if !ok {
			m.log.Debug("skipping unreadable item row", "row", i)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *Manager) scanRow(ctx context.Context, row string) (model.ExistingItem, bool) {
	sel := m.cfg.Portal.Selectors.Reports
	var item model.ExistingItem

	amountText, err := m.session.Text(ctx, browser.Within(row, sel.ItemAmount))
	if err != nil {
		return item, false
	}
	amount, ok := parseAmount(amountText)
	if !ok {
		// A row without an amount is a layout artifact, not an item.
		return item, false
	}
	item.Amount = amount

	if text, err := m.session.Text(ctx, browser.Within(row, sel.ItemDate)); err == nil {
		item.Date = datePattern.FindString(text)
	}
	if text, err := m.session.Text(ctx, browser.Within(row, sel.ItemMerchant)); err == nil {
		item.Merchant = strings.TrimSpace(text)
	}
	if text, err := m.session.Text(ctx, browser.Within(row, sel.ItemDescription)); err == nil {
		item.Description = strings.TrimSpace(text)
	}
	return item, true
}

func parseAmount(text string) (model.Cents, bool) {
	match := amountPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return model.CentsFromFloat(v), true
}
