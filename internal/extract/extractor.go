// Package extract turns receipt images into structured records using a
// vision-capable model. Providers share one wire schema; all response
// validation lives in the parser so provider clients stay thin.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/model"
)

// Extractor analyzes one receipt image per call. Analyze returns the record,
// non-fatal warnings about fields the extractor had to repair, and an error
// only when no usable record came back.
type Extractor interface {
	Analyze(ctx context.Context, imagePath string) (*model.ReceiptRecord, []string, error)
	// Verify makes a minimal round trip to prove the provider is reachable
	// and the credentials work.
	Verify(ctx context.Context) error
	Close() error
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Types    []config.ExpenseType
}

// New creates an extractor for the configured provider.
func New(cfg Config) (Extractor, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIExtractor(cfg)
	case "gemini":
		return newGeminiExtractor(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}

// Bootstrap creates an extractor and verifies connectivity before any
// receipt is touched. Transient provider hiccups are retried; an auth
// failure surfaces immediately as ErrExtractorSetup.
func Bootstrap(ctx context.Context, cfg Config) (Extractor, error) {
	ex, err := New(cfg)
	if err != nil {
		return nil, err
	}

	err = common.WithRetry(ctx, func() error {
		return ex.Verify(ctx)
	}, common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	})
	if err != nil {
		_ = ex.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrExtractorSetup, err)
	}
	return ex, nil
}

// buildPrompt renders the extraction instructions, enumerating the portal's
// expense types so classification lands on a fillable option.
func buildPrompt(types []config.ExpenseType) string {
	var b strings.Builder
	b.WriteString("Analyze this receipt image and respond with a single JSON object, no prose.\n")
	b.WriteString("Fields:\n")
	b.WriteString("  type_key: one of the expense type keys listed below\n")
	b.WriteString("  merchant: the merchant name as printed\n")
	b.WriteString("  total_amount: the receipt total as a number\n")
	b.WriteString("  currency: ISO currency code, e.g. USD\n")
	b.WriteString("  date: the receipt date as DD-MM-YYYY, or \"\" if not printed\n")
	b.WriteString("  description: one short line describing the purchase\n")
	b.WriteString("For flights also set: ticket_number, departure_city, arrival_city,\n")
	b.WriteString("  flight_type (domestic or international), flight_class (first, business, coach or economy).\n")
	b.WriteString("For hotels also set: nights, check_in_date and check_out_date as DD-MM-YYYY.\n")
	b.WriteString("For meals also set attendee_name when a guest is named.\n")
	b.WriteString("Expense type keys:\n")
	for _, t := range types {
		if len(t.Keywords) > 0 {
			fmt.Fprintf(&b, "  %s (%s): hints %s\n", t.Key, t.Label, strings.Join(t.Keywords, ", "))
		} else {
			fmt.Fprintf(&b, "  %s (%s)\n", t.Key, t.Label)
		}
	}
	return b.String()
}
