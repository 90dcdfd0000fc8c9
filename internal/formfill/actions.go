package formfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/common"
)

// Toolbar buttons in the item form are custom widgets that ignore synthetic
// clicks but honor keyboard activation. Both actions below therefore seed
// focus on a nearby stable element, tab until the wanted button holds focus,
// and press Space.
const (
	advanceTabBudget  = 15
	finalizeTabBudget = 6
)

// openForm starts a fresh expense item form.
func (f *ItemFiller) openForm(ctx context.Context) error {
	sel := f.cfg.Portal.Selectors
	timeout := f.driver.fieldTimeout

	if err := f.session.Click(ctx, sel.Buttons.CreateItem, timeout); err != nil {
		return fmt.Errorf("opening item form: %w", err)
	}
	if err := f.session.WaitVisible(ctx, sel.Fields.ExpenseType, f.driver.dropdownWait); err != nil {
		return fmt.Errorf("item form never rendered: %w", err)
	}
	return nil
}

// AdvanceNext saves the current item and reopens a blank form via the
// Create Another button. On success the next FillItem call works on a fresh
// form without an openForm round trip.
func (f *ItemFiller) AdvanceNext(ctx context.Context) error {
	sel := f.cfg.Portal.Selectors

	if err := f.session.Click(ctx, sel.Buttons.CreateAnotherSeed, f.driver.fieldTimeout); err != nil {
		return fmt.Errorf("seeding focus for create another: %w", err)
	}

	if !f.tabToButton(ctx, advanceTabBudget, "Create Another") {
		return fmt.Errorf("%w: create another button", common.ErrControlNotFound)
	}
	if err := f.session.Press(ctx, "Space"); err != nil {
		return fmt.Errorf("activating create another: %w", err)
	}

	if f.waitFormReset(ctx) {
		return nil
	}

	// Space occasionally lands on the widget without triggering it; Enter is
	// the portal's documented alternate activation.
	f.log.Debug("form did not reset after Space, retrying with Enter")
	if err := f.session.Press(ctx, "Enter"); err != nil {
		return fmt.Errorf("activating create another: %w", err)
	}
	if !f.waitFormReset(ctx) {
		return fmt.Errorf("form did not reset after create another")
	}
	return nil
}

// Finalize saves the current item and closes the form via Save and Close.
// A *common.RemoteRejection is returned when the portal answers with its
// validation dialog instead of closing the form.
func (f *ItemFiller) Finalize(ctx context.Context) error {
	sel := f.cfg.Portal.Selectors
	timeout := f.driver.fieldTimeout

	// Commit any in-progress edit before reaching for the toolbar.
	if err := f.session.Click(ctx, sel.Fields.Amount, timeout); err != nil {
		f.log.Debug("amount field not focusable before save", "error", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}

	if err := f.session.Click(ctx, sel.Buttons.SaveAndCloseSeed, timeout); err != nil {
		return fmt.Errorf("seeding focus for save and close: %w", err)
	}
	if !f.tabToButton(ctx, finalizeTabBudget, "Save and Close") {
		return fmt.Errorf("%w: save and close button", common.ErrControlNotFound)
	}
	if err := f.session.Press(ctx, "Space"); err != nil {
		return fmt.Errorf("activating save and close: %w", err)
	}

	return f.waitForClose(ctx)
}

// tabToButton tabs from the current focus until an anchor-style button whose
// text contains want holds focus, within the given budget.
func (f *ItemFiller) tabToButton(ctx context.Context, budget int, want string) bool {
	for i := 0; i < budget; i++ {
		if err := f.session.Press(ctx, "Tab"); err != nil {
			return false
		}
		info, err := f.session.Focused(ctx)
		if err != nil {
			continue
		}
		text := info.Text
		if text == "" {
			text = info.Title
		}
		if strings.Contains(text, want) {
			return true
		}
	}
	return false
}

// waitFormReset polls for the blank form the Create Another action is
// supposed to leave behind, identified by the expense type select reading as
// the placeholder again.
func (f *ItemFiller) waitFormReset(ctx context.Context) bool {
	sel := f.cfg.Portal.Selectors
	deadline := time.Now().Add(5 * time.Second)
	for {
		v, err := f.session.Value(ctx, sel.Fields.ExpenseType)
		if err == nil && (v == "" || v == "0") {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// waitForClose watches both terminal outcomes of a save: the form date field
// disappearing (accepted) or the validation dialog appearing (rejected).
func (f *ItemFiller) waitForClose(ctx context.Context) error {
	sel := f.cfg.Portal.Selectors
	deadline := time.Now().Add(10 * time.Second)
	for {
		if f.session.IsVisible(ctx, sel.Dialogs.Error) {
			return f.readRejection(ctx)
		}
		if !f.session.IsVisible(ctx, sel.Fields.Date) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("save and close produced neither a closed form nor an error dialog")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (f *ItemFiller) readRejection(ctx context.Context) error {
	sel := f.cfg.Portal.Selectors.Dialogs

	msg, err := f.session.Text(ctx, sel.ErrorBody)
	if err != nil || strings.TrimSpace(msg) == "" {
		msg = "the expense portal rejected the report"
	}
	if err := f.session.Click(ctx, sel.ErrorDismiss, f.driver.fieldTimeout); err != nil {
		f.log.Debug("error dialog not dismissed", "error", err)
	}
	return &common.RemoteRejection{Message: strings.TrimSpace(msg)}
}
