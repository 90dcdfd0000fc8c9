// Package formfill drives the portal's expense item form. Every write goes
// through a fill-and-verify protocol: apply the value, read it back, retry on
// mismatch. The portal re-renders controls mid-edit, so a write that looked
// accepted can silently revert; reading back is the only trustworthy signal.
package formfill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/model"
)

// ControlKind selects the apply strategy for a form target.
type ControlKind int

const (
	// KindText fills an input or textarea directly.
	KindText ControlKind = iota
	// KindSelect chooses a dropdown option by its visible label.
	KindSelect
	// KindTypedDate focuses the control and types keystroke by keystroke,
	// then tabs away. Date inputs reject programmatic fills.
	KindTypedDate
)

// typedKeyDelay spaces out keystrokes for KindTypedDate so the portal's
// per-key handlers keep up.
const typedKeyDelay = 40 * time.Millisecond

// Target names one form control and how to drive it.
type Target struct {
	Descriptor string
	Name       string
	Kind       ControlKind
	// Populate marks selects whose options load lazily and need the control
	// activated before they exist.
	Populate bool
}

// Value is what to put in a target. Text drives KindText and KindTypedDate.
// Label drives KindSelect; Code, when set, is the option value the control
// must read back as. With Code empty, any committed non-placeholder value
// verifies.
type Value struct {
	Text  string
	Label string
	Code  string
}

// Driver runs the fill-and-verify protocol against one session.
type Driver struct {
	session      browser.Session
	maxAttempts  int
	retryDelay   time.Duration
	fieldTimeout time.Duration
	dropdownWait time.Duration
	log          *slog.Logger
}

// NewDriver builds a driver from the fill tuning block. Zero values fall back
// to the shipped defaults.
func NewDriver(session browser.Session, fill config.FillConfig, log *slog.Logger) *Driver {
	d := &Driver{
		session:      session,
		maxAttempts:  fill.MaxAttempts,
		retryDelay:   fill.RetryDelay,
		fieldTimeout: fill.FieldTimeout,
		dropdownWait: fill.DropdownTimeout,
		log:          log,
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 3
	}
	if d.fieldTimeout <= 0 {
		d.fieldTimeout = 2 * time.Second
	}
	if d.dropdownWait <= 0 {
		d.dropdownWait = 5 * time.Second
	}
	return d
}

// FillAndVerify applies the value to the target, reads it back, and retries
// on mismatch up to the attempt cap. It never returns an error; the outcome
// carries the result so callers decide per field whether failure is fatal.
func (d *Driver) FillAndVerify(ctx context.Context, t Target, v Value) model.FillOutcome {
	var lastDiag string
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 && d.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return model.FillOutcome{AttemptsUsed: attempt - 1, Diagnostic: ctx.Err().Error()}
			case <-time.After(d.retryDelay):
			}
		}

		if err := d.attempt(ctx, t, v); err != nil {
			lastDiag = err.Error()
			d.log.Debug("fill attempt failed",
				"field", t.Name,
				"attempt", attempt,
				"error", err)
			continue
		}
		return model.FillOutcome{Success: true, AttemptsUsed: attempt}
	}
	d.log.Warn("field exhausted retries", "field", t.Name, "diagnostic", lastDiag)
	return model.FillOutcome{AttemptsUsed: d.maxAttempts, Diagnostic: lastDiag}
}

func (d *Driver) attempt(ctx context.Context, t Target, v Value) error {
	if err := d.session.WaitVisible(ctx, t.Descriptor, d.fieldTimeout); err != nil {
		return fmt.Errorf("%s not visible: %w", t.Name, err)
	}

	if t.Populate {
		if err := d.populate(ctx, t); err != nil {
			return err
		}
	}

	switch t.Kind {
	case KindSelect:
		if err := d.session.SelectByLabel(ctx, t.Descriptor, v.Label, d.fieldTimeout); err != nil {
			return fmt.Errorf("selecting %q in %s: %w", v.Label, t.Name, err)
		}
	case KindTypedDate:
		if err := d.session.Click(ctx, t.Descriptor, d.fieldTimeout); err != nil {
			return fmt.Errorf("focusing %s: %w", t.Name, err)
		}
		if err := d.session.TypeText(ctx, v.Text, typedKeyDelay); err != nil {
			return fmt.Errorf("typing into %s: %w", t.Name, err)
		}
		if err := d.session.Press(ctx, "Tab"); err != nil {
			return fmt.Errorf("committing %s: %w", t.Name, err)
		}
	default:
		if err := d.session.Fill(ctx, t.Descriptor, v.Text, d.fieldTimeout); err != nil {
			return fmt.Errorf("filling %s: %w", t.Name, err)
		}
	}

	return d.verify(ctx, t, v)
}

// populate activates a lazy dropdown. The portal only fetches options on
// interaction, and one click is sometimes swallowed by a re-render, so the
// control is clicked twice before polling the option count.
func (d *Driver) populate(ctx context.Context, t Target) error {
	for i := 0; i < 2; i++ {
		if err := d.session.Click(ctx, t.Descriptor, d.fieldTimeout); err != nil {
			return fmt.Errorf("activating %s: %w", t.Name, err)
		}
	}

	options := browser.Within(t.Descriptor, "option")
	deadline := time.Now().Add(d.dropdownWait)
	for {
		n, err := d.session.Count(ctx, options)
		if err == nil && n > 1 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s options never loaded", t.Name)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
}

func (d *Driver) verify(ctx context.Context, t Target, v Value) error {
	got, err := d.session.Value(ctx, t.Descriptor)
	if err != nil {
		return fmt.Errorf("reading back %s: %w", t.Name, err)
	}

	switch t.Kind {
	case KindSelect:
		// "0" is the portal's placeholder option.
		if v.Code != "" {
			if got != v.Code {
				return fmt.Errorf("%s reads %q, want code %q", t.Name, got, v.Code)
			}
			return nil
		}
		if got == "" || got == "0" {
			return fmt.Errorf("%s still on placeholder", t.Name)
		}
		return nil
	case KindTypedDate:
		// The portal reformats typed dates on blur, so only demand that the
		// commit stuck.
		if strings.TrimSpace(got) == "" {
			return fmt.Errorf("%s empty after typing", t.Name)
		}
		return nil
	default:
		if got != v.Text {
			return fmt.Errorf("%s reads %q, want %q", t.Name, got, v.Text)
		}
		return nil
	}
}

// SetByScript writes a value straight into the DOM and fires the events the
// portal's recalculation hooks listen for. Some numeric controls overwrite
// synthetic keystrokes from their own handlers; a scripted assignment with
// dispatched input and change events is the only write they keep.
func (d *Driver) SetByScript(ctx context.Context, descriptor, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, descriptor, value)

	res, err := d.session.Evaluate(ctx, script)
	if err != nil {
		return fmt.Errorf("scripted write to %q: %w", descriptor, err)
	}
	if ok, isBool := res.(bool); isBool && !ok {
		return fmt.Errorf("scripted write: %q matched no element", descriptor)
	}
	return nil
}
