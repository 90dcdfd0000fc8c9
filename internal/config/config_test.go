package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelForKey(t *testing.T) {
	cfg := &Config{Types: []ExpenseType{
		{Key: "MEAL", Label: "Meals-Employee Only"},
		{Key: "AIRFARE", Label: "Travel-Airfare"},
	}}

	assert.Equal(t, "Meals-Employee Only", cfg.LabelForKey("MEAL"))
	assert.Equal(t, "Travel-Airfare", cfg.LabelForKey("AIRFARE"))
	// Unknown keys pass through so the dropdown failure is visible in logs.
	assert.Equal(t, "PARKING", cfg.LabelForKey("PARKING"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		dryRun  bool
		wantErr bool
	}{
		{
			name:    "complete live config",
			cfg:     Config{LLM: LLMConfig{APIKey: "k"}, Portal: PortalConfig{URL: "https://portal"}},
			wantErr: false,
		},
		{
			name:    "missing api key",
			cfg:     Config{Portal: PortalConfig{URL: "https://portal"}},
			wantErr: true,
		},
		{
			name:    "missing portal url fails live",
			cfg:     Config{LLM: LLMConfig{APIKey: "k"}},
			wantErr: true,
		},
		{
			name:    "missing portal url allowed in dry run",
			cfg:     Config{LLM: LLMConfig{APIKey: "k"}},
			dryRun:  true,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.dryRun)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "receipts"), ExpandPath("~/receipts"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "", ExpandPath(""))

	t.Setenv("RECEIPTS_ROOT", "/data")
	assert.Equal(t, "/data/jan", ExpandPath("$RECEIPTS_ROOT/jan"))
}
