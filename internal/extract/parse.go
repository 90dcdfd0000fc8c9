package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/model"
)

// wireRecord is the JSON shape the prompt asks every provider for.
type wireRecord struct {
	TypeKey       string  `json:"type_key"`
	Merchant      string  `json:"merchant"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
	Date          string  `json:"date"`
	Description   string  `json:"description"`
	TicketNumber  string  `json:"ticket_number"`
	DepartureCity string  `json:"departure_city"`
	ArrivalCity   string  `json:"arrival_city"`
	FlightType    string  `json:"flight_type"`
	FlightClass   string  `json:"flight_class"`
	Nights        int     `json:"nights"`
	CheckInDate   string  `json:"check_in_date"`
	CheckOutDate  string  `json:"check_out_date"`
	AttendeeName  string  `json:"attendee_name"`
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseRecord validates a provider response into a ReceiptRecord. Defects
// the parser can repair become warnings; a response without a positive
// amount or without any JSON is unusable and returns an error.
func ParseRecord(raw string, types []config.ExpenseType) (*model.ReceiptRecord, []string, error) {
	text := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, nil, common.ErrEmptyResponse
	}

	var wire wireRecord
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}

	var warnings []string

	if wire.TotalAmount == 0 {
		return nil, nil, fmt.Errorf("%w: no amount", common.ErrInvalidRecord)
	}
	if wire.TotalAmount < 0 {
		warnings = append(warnings, fmt.Sprintf("negative amount %.2f read as positive", wire.TotalAmount))
		wire.TotalAmount = -wire.TotalAmount
	}

	typeKey, w := resolveType(wire.TypeKey, types)
	warnings = append(warnings, w...)

	date, w := normalizeDate(wire.Date, "date")
	warnings = append(warnings, w...)

	checkIn, _ := normalizeDate(wire.CheckInDate, "check-in date")
	checkOut, _ := normalizeDate(wire.CheckOutDate, "check-out date")

	description := strings.TrimSpace(wire.Description)
	if description == "" {
		if wire.Merchant != "" {
			description = wire.Merchant + " receipt"
		} else {
			description = "Expense"
		}
		warnings = append(warnings, "description missing, generated one")
	}

	rec := &model.ReceiptRecord{
		ExpenseType:   typeKey,
		Amount:        model.CentsFromFloat(wire.TotalAmount),
		Currency:      strings.ToUpper(strings.TrimSpace(wire.Currency)),
		Date:          date,
		Merchant:      strings.TrimSpace(wire.Merchant),
		Description:   description,
		TicketNumber:  strings.TrimSpace(wire.TicketNumber),
		DepartureCity: strings.TrimSpace(wire.DepartureCity),
		ArrivalCity:   strings.TrimSpace(wire.ArrivalCity),
		FlightType:    strings.TrimSpace(wire.FlightType),
		FlightClass:   strings.TrimSpace(wire.FlightClass),
		Nights:        wire.Nights,
		CheckInDate:   checkIn,
		CheckOutDate:  checkOut,
		AttendeeName:  strings.TrimSpace(wire.AttendeeName),
		RawResponse:   raw,
	}
	return rec, warnings, nil
}

// resolveType maps the wire type key onto a configured expense type; an
// unknown key degrades to OTHER rather than failing the receipt.
func resolveType(key string, types []config.ExpenseType) (string, []string) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return "OTHER", []string{"no expense type classified, using OTHER"}
	}
	if len(types) == 0 {
		return key, nil
	}
	for _, t := range types {
		if strings.EqualFold(t.Key, key) {
			return t.Key, nil
		}
	}
	return "OTHER", []string{fmt.Sprintf("unknown expense type %q, using OTHER", key)}
}

// normalizeDate coerces a wire date into canonical form. Providers
// occasionally answer in ISO form despite the prompt; that is repaired with
// a warning, anything else is dropped.
func normalizeDate(s, field string) (string, []string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if dates.ValidCanonical(s) {
		return s, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		fixed := t.Format(dates.CanonicalLayout)
		return fixed, []string{fmt.Sprintf("%s %q converted to %s", field, s, fixed)}
	}
	return "", []string{fmt.Sprintf("unparseable %s %q dropped", field, s)}
}
