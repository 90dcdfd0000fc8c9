package formfill

import (
	"context"
	"strings"

	"github.com/expenseops/autoexpense/internal/model"
)

// Portal option codes for the airfare dropdowns.
var (
	flightTypeCodes = map[string]string{
		"domestic":      "1",
		"international": "2",
	}
	flightClassCodes = map[string]string{
		"first":    "1",
		"business": "2",
		"coach":    "3",
		"economy":  "3",
	}
)

// fillAirfare completes the travel block an airfare item adds to the form.
// Dropdowns are set by option code; free-text fields come from the receipt
// with operator defaults for passenger and agency.
func (f *ItemFiller) fillAirfare(ctx context.Context, rec *model.ReceiptRecord) {
	sel := f.cfg.Portal.Selectors.Fields
	timeout := f.driver.fieldTimeout

	if code, ok := flightTypeCodes[normalize(rec.FlightType)]; ok {
		if err := f.session.SelectByValue(ctx, sel.FlightType, code, timeout); err != nil {
			f.log.Warn("flight type not set", "value", rec.FlightType, "error", err)
		}
	}
	if code, ok := flightClassCodes[normalize(rec.FlightClass)]; ok {
		if err := f.session.SelectByValue(ctx, sel.FlightClass, code, timeout); err != nil {
			f.log.Warn("flight class not set", "value", rec.FlightClass, "error", err)
		}
	}

	if rec.TicketNumber != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.TicketNumber, Name: "ticket number", Kind: KindText},
			Value{Text: rec.TicketNumber})
	}
	if rec.DepartureCity != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.DepartureCity, Name: "departure city", Kind: KindText},
			Value{Text: rec.DepartureCity})
	}
	if rec.ArrivalCity != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.ArrivalCity, Name: "arrival city", Kind: KindText},
			Value{Text: rec.ArrivalCity})
	}
	if f.cfg.User.FullName != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.PassengerName, Name: "passenger name", Kind: KindText},
			Value{Text: f.cfg.User.FullName})
	}
	if f.cfg.Travel.DefaultAgency != "" {
		f.fillOptional(ctx,
			Target{Descriptor: sel.Agency, Name: "agency", Kind: KindText},
			Value{Text: f.cfg.Travel.DefaultAgency})
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
