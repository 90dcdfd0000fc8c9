package formfill

import (
	"context"
	"fmt"
	"time"

	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/model"
)

// SplitNightly divides a stay total into per-night amounts that sum back to
// the total exactly. The remainder cents left over by integer division are
// distributed one per night starting from the first.
func SplitNightly(total model.Cents, nights int) []model.Cents {
	if nights < 1 {
		nights = 1
	}
	base := total / model.Cents(nights)
	rem := int(total % model.Cents(nights))

	amounts := make([]model.Cents, nights)
	for i := range amounts {
		amounts[i] = base
		if i < rem {
			amounts[i]++
		}
	}
	return amounts
}

// InferNights derives the stay length from the check-in and check-out dates.
// It returns 0 when either date is missing or unparseable.
func InferNights(checkIn, checkOut string) int {
	in, err := dates.ParseCanonical(checkIn)
	if err != nil {
		return 0
	}
	out, err := dates.ParseCanonical(checkOut)
	if err != nil {
		return 0
	}
	n := int(out.Sub(in).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// fillHotel completes the nightly breakdown table a hotel item adds below
// the shared fields. Each night gets its own row; the amount columns are
// written by script because the table recalculates on its own key handlers.
//
// A failed row addition aborts the breakdown. The rows already written stay
// balanced against the item total only when all rows land, so the operator is
// warned to finish the table by hand.
func (f *ItemFiller) fillHotel(ctx context.Context, rec *model.ReceiptRecord, canonicalDate string) {
	sel := f.cfg.Portal.Selectors
	timeout := f.driver.fieldTimeout

	nights := rec.Nights
	if nights < 1 {
		nights = InferNights(rec.CheckInDate, rec.CheckOutDate)
	}
	if nights < 1 {
		nights = 1
	}

	start, ok := f.stayStart(rec, canonicalDate)
	if !ok {
		f.log.Warn("hotel breakdown skipped, no usable start date")
		return
	}

	amounts := SplitNightly(rec.Amount, nights)
	for i, amount := range amounts {
		if i > 0 {
			if err := f.session.Click(ctx, sel.Buttons.AddRow, timeout); err != nil {
				f.log.Warn("breakdown row not added, finish the table manually",
					"row", i+1,
					"nights", nights,
					"error", err)
				return
			}
		}

		rowType := fmt.Sprintf(sel.Hotel.RowType, i)
		if err := f.session.SelectByValue(ctx, rowType, sel.Hotel.RowTypeValue, timeout); err != nil {
			f.log.Warn("breakdown row type not set", "row", i+1, "error", err)
		}

		f.typeRowDate(ctx, fmt.Sprintf(sel.Hotel.RowDate, i), start.AddDate(0, 0, i))

		cents := amount.String()
		f.scriptRow(ctx, fmt.Sprintf(sel.Hotel.RowDailyAmount, i), cents, "daily amount", i)
		f.scriptRow(ctx, fmt.Sprintf(sel.Hotel.RowDays, i), "1", "days", i)
		f.scriptRow(ctx, fmt.Sprintf(sel.Hotel.RowAmount, i), cents, "amount", i)
	}
}

// stayStart picks the first night of the stay: the check-in date when the
// receipt has one, otherwise the item date.
func (f *ItemFiller) stayStart(rec *model.ReceiptRecord, canonicalDate string) (time.Time, bool) {
	if rec.CheckInDate != "" {
		if t, err := dates.ParseCanonical(rec.CheckInDate); err == nil {
			return t, true
		}
		f.log.Warn("ignoring malformed check-in date", "date", rec.CheckInDate)
	}
	t, err := dates.ParseCanonical(canonicalDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// typeRowDate types a breakdown row date keystroke by keystroke and tabs
// away; row date inputs drop programmatic fills just like the item date.
func (f *ItemFiller) typeRowDate(ctx context.Context, descriptor string, day time.Time) {
	if err := f.session.Click(ctx, descriptor, f.driver.fieldTimeout); err != nil {
		f.log.Warn("breakdown row date not focused", "error", err)
		return
	}
	if err := f.session.TypeText(ctx, dates.ToRow(day), typedKeyDelay); err != nil {
		f.log.Warn("breakdown row date not typed", "error", err)
		return
	}
	if err := f.session.Press(ctx, "Tab"); err != nil {
		f.log.Warn("breakdown row date not committed", "error", err)
	}
}

func (f *ItemFiller) scriptRow(ctx context.Context, descriptor, value, name string, row int) {
	if err := f.driver.SetByScript(ctx, descriptor, value); err != nil {
		f.log.Warn("breakdown cell not written", "cell", name, "row", row+1, "error", err)
	}
}
