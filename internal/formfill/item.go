package formfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/model"
)

// ItemFiller files one expense item at a time: the shared fields, the
// type-specific extension, and the receipt attachment.
type ItemFiller struct {
	session browser.Session
	cfg     *config.Config
	driver  *Driver
	log     *slog.Logger
}

// NewItemFiller wires a filler over the session.
func NewItemFiller(session browser.Session, cfg *config.Config, log *slog.Logger) *ItemFiller {
	return &ItemFiller{
		session: session,
		cfg:     cfg,
		driver:  NewDriver(session, cfg.Fill, log),
		log:     log,
	}
}

// FillItem fills the expense item form for one receipt. first marks the first
// item of a fresh form, which must be opened with the Create Item action.
//
// Only the expense type gates the outcome; the portal cannot file an item
// without it. Every other field is best effort and logged on failure, since a
// partially filled item the operator can finish by hand beats a dropped one.
func (f *ItemFiller) FillItem(ctx context.Context, rec *model.ReceiptRecord, canonicalDate, receiptPath string, first bool) (model.FillOutcome, error) {
	sel := f.cfg.Portal.Selectors

	if first {
		if err := f.openForm(ctx); err != nil {
			return model.FillOutcome{Diagnostic: err.Error()}, err
		}
	}

	typeOutcome := f.driver.FillAndVerify(ctx,
		Target{Descriptor: sel.Fields.ExpenseType, Name: "expense type", Kind: KindSelect, Populate: true},
		Value{Label: f.cfg.LabelForKey(rec.ExpenseType)})
	if !typeOutcome.Success {
		return typeOutcome, nil
	}

	f.fillOptional(ctx,
		Target{Descriptor: sel.Fields.Amount, Name: "amount", Kind: KindText},
		Value{Text: rec.Amount.String()})

	remote, err := dates.ToRemote(canonicalDate)
	if err != nil {
		return model.FillOutcome{Diagnostic: err.Error()}, fmt.Errorf("formatting item date: %w", err)
	}
	f.fillOptional(ctx,
		Target{Descriptor: sel.Fields.Date, Name: "date", Kind: KindTypedDate},
		Value{Text: remote})

	if rec.Merchant != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.Fields.Merchant, Name: "merchant", Kind: KindText},
			Value{Text: rec.Merchant})
	}
	if rec.Description != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.Fields.Description, Name: "description", Kind: KindText},
			Value{Text: rec.Description})
	}

	switch {
	case rec.IsMeal():
		f.fillMeal(ctx, rec)
	case rec.IsAirfare():
		f.fillAirfare(ctx, rec)
	case rec.IsHotel():
		f.fillHotel(ctx, rec, canonicalDate)
	}

	if receiptPath != "" {
		if err := f.attach(ctx, receiptPath); err != nil {
			f.log.Warn("attachment upload failed", "receipt", receiptPath, "error", err)
		}
	}

	return typeOutcome, nil
}

// fillOptional runs the protocol and swallows failure; the driver already
// logged the diagnostics.
func (f *ItemFiller) fillOptional(ctx context.Context, t Target, v Value) {
	f.driver.FillAndVerify(ctx, t, v)
}
