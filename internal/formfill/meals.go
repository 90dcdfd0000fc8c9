package formfill

import (
	"context"

	"github.com/expenseops/autoexpense/internal/model"
)

// fillMeal completes the attendee block a meal item adds to the form. Solo
// meals are the norm; a named attendee from the receipt overrides the
// operator.
func (f *ItemFiller) fillMeal(ctx context.Context, rec *model.ReceiptRecord) {
	sel := f.cfg.Portal.Selectors.Fields

	f.fillOptional(ctx,
		Target{Descriptor: sel.AttendeeCount, Name: "attendee count", Kind: KindText},
		Value{Text: "1"})

	name := rec.AttendeeName
	if name == "" {
		name = f.cfg.User.FullName
	}
	if name != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.AttendeeNames, Name: "attendee names", Kind: KindText},
			Value{Text: name})
	}
}
