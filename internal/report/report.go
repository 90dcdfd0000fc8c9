// Package report manages the expense report surrounding the items: finding
// an open one, creating a fresh one, and scanning the items it already holds.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/model"
)

// Manager drives report-level navigation on an authenticated session.
type Manager struct {
	session browser.Session
	cfg     *config.Config
	log     *slog.Logger
}

// NewManager wires a manager over the session.
func NewManager(session browser.Session, cfg *config.Config, log *slog.Logger) *Manager {
	return &Manager{session: session, cfg: cfg, log: log}
}

// WaitForLogin blocks until the portal renders an element that only exists
// for an authenticated operator. SSO happens in the visible browser window,
// so this is a human-paced wait.
func (m *Manager) WaitForLogin(ctx context.Context, timeout time.Duration) error {
	indicators := m.cfg.Portal.Selectors.Login.Indicators
	deadline := time.Now().Add(timeout)

	m.log.Info("waiting for login, complete authentication in the browser window")
	for {
		for _, ind := range indicators {
			if m.session.IsVisible(ctx, ind) {
				m.log.Info("login detected")
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no login detected within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// FindOpen looks for an unsubmitted report, opens it, and scans the items it
// already contains. found is false when the portal shows no open report;
// that is not an error, the caller decides whether to create one.
func (m *Manager) FindOpen(ctx context.Context) (found bool, items []model.ExistingItem, err error) {
	marker := m.cfg.Portal.Selectors.Reports.OpenMarker

	if !m.session.IsVisible(ctx, marker) {
		m.log.Info("no open report found")
		return false, nil, nil
	}

	if err := m.session.Click(ctx, marker, m.cfg.Fill.FieldTimeout); err != nil {
		return false, nil, fmt.Errorf("opening existing report: %w", err)
	}

	items, err = m.ScanExisting(ctx)
	if err != nil {
		return true, nil, fmt.Errorf("scanning existing report: %w", err)
	}
	m.log.Info("reusing open report", "existing_items", len(items))
	return true, items, nil
}

// Create starts a new report with the given purpose.
func (m *Manager) Create(ctx context.Context, purpose string) error {
	sel := m.cfg.Portal.Selectors
	timeout := m.cfg.Fill.FieldTimeout

	if err := m.session.Click(ctx, sel.Buttons.CreateReport, timeout); err != nil {
		return fmt.Errorf("clicking create report: %w", err)
	}
	if err := m.session.WaitVisible(ctx, sel.Fields.Purpose, m.cfg.Fill.DropdownTimeout); err != nil {
		return fmt.Errorf("report form never rendered: %w", err)
	}
	if err := m.session.Fill(ctx, sel.Fields.Purpose, purpose, timeout); err != nil {
		return fmt.Errorf("filling report purpose: %w", err)
	}
	m.log.Info("created report", "purpose", purpose)
	return nil
}

// PurposeFor derives a report purpose from a receipt. A travel receipt whose
// destination differs from the operator's home city names the trip; anything
// else falls back to a generic business purpose.
func PurposeFor(rec *model.ReceiptRecord, homeCity string) string {
	for _, city := range []string{rec.ArrivalCity, rec.DepartureCity} {
		if city != "" && city != homeCity {
			return fmt.Sprintf("Trip to %s", city)
		}
	}
	return "Business expenses"
}
