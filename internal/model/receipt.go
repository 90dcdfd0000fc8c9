// Package model holds the data types shared across the application.
package model

import "strings"

// ReceiptRecord is the structured result of analyzing one receipt image.
// It is created once by the extractor and never mutated afterward.
type ReceiptRecord struct {
	ExpenseType string
	Amount      Cents
	Currency    string
	Date        string // canonical DD-MM-YYYY, empty when the extractor found none
	Merchant    string
	Description string

	// Airfare extras.
	TicketNumber  string
	DepartureCity string
	ArrivalCity   string
	FlightType    string
	FlightClass   string

	// Hotel extras.
	Nights       int
	CheckInDate  string // canonical DD-MM-YYYY
	CheckOutDate string // canonical DD-MM-YYYY

	// Meal extras.
	AttendeeName string

	// RawResponse keeps the extractor's raw output for verbose journaling.
	RawResponse string
}

// IsMeal reports whether the expense type indicates a meal.
func (r *ReceiptRecord) IsMeal() bool {
	return containsAny(r.ExpenseType, "meal", "breakfast", "lunch", "dinner")
}

// IsAirfare reports whether the expense type indicates a flight.
func (r *ReceiptRecord) IsAirfare() bool {
	return containsAny(r.ExpenseType, "airfare", "flight")
}

// IsHotel reports whether the expense type indicates lodging with a nightly
// breakdown.
func (r *ReceiptRecord) IsHotel() bool {
	return containsAny(r.ExpenseType, "hotel", "accommodation", "lodging")
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
