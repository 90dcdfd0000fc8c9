package formfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseops/autoexpense/internal/model"
)

func TestSplitNightly(t *testing.T) {
	tests := []struct {
		name   string
		total  model.Cents
		nights int
		want   []model.Cents
	}{
		{
			name:   "even split",
			total:  30000,
			nights: 3,
			want:   []model.Cents{10000, 10000, 10000},
		},
		{
			name:   "remainder goes to the first nights",
			total:  10000,
			nights: 3,
			want:   []model.Cents{3334, 3333, 3333},
		},
		{
			name:   "single night",
			total:  12345,
			nights: 1,
			want:   []model.Cents{12345},
		},
		{
			name:   "two cent remainder",
			total:  10001,
			nights: 3,
			want:   []model.Cents{3334, 3334, 3333},
		},
		{
			name:   "zero nights treated as one",
			total:  5000,
			nights: 0,
			want:   []model.Cents{5000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitNightly(tt.total, tt.nights)
			require.Equal(t, tt.want, got)

			var sum model.Cents
			for _, c := range got {
				sum += c
			}
			want := tt.total
			assert.Equal(t, want, sum, "nightly amounts must sum back to the total")
		})
	}
}

func TestInferNights(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		want     int
	}{
		{"three nights", "15-01-2025", "18-01-2025", 3},
		{"one night", "15-01-2025", "16-01-2025", 1},
		{"same day", "15-01-2025", "15-01-2025", 0},
		{"checkout before checkin", "18-01-2025", "15-01-2025", 0},
		{"missing checkin", "", "18-01-2025", 0},
		{"malformed checkout", "15-01-2025", "January 18", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferNights(tt.checkIn, tt.checkOut))
		})
	}
}
