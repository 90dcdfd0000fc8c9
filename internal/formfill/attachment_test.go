package formfill

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
)

func attachConfig() *config.Config {
	cfg := testPortalConfig()
	cfg.Fill.UploadTimeout = 200 * time.Millisecond
	att := &cfg.Portal.Selectors.Attachments
	att.DropZones = []string{"dz-empty", "dz-existing"}
	att.AddFile = "btn-add-file"
	att.HiddenInput = "input-file"
	att.List = "attachment-list"
	att.EmptyText = "No attachments to display"
	return cfg
}

func TestAttachUploadsAndWaitsForListing(t *testing.T) {
	s := browser.NewScriptedSession()
	s.Hidden["dz-empty"] = true // panel renders the other variant
	s.TextScript["attachment-list"] = []string{"No attachments to display", "receipt.jpg"}
	f := NewItemFiller(s, attachConfig(), testLogger())

	err := f.attach(context.Background(), "/receipts/receipt.jpg")
	require.NoError(t, err)

	assert.Contains(t, s.Log, "click dz-existing")
	assert.Contains(t, s.Log, "set-files input-file=/receipts/receipt.jpg")
}

func TestAttachNoDropZoneVisible(t *testing.T) {
	s := browser.NewScriptedSession()
	s.Hidden["dz-empty"] = true
	s.Hidden["dz-existing"] = true
	f := NewItemFiller(s, attachConfig(), testLogger())

	err := f.attach(context.Background(), "/receipts/receipt.jpg")
	assert.ErrorIs(t, err, common.ErrControlNotFound)
}

func TestAttachTimesOutWhenListStaysEmpty(t *testing.T) {
	s := browser.NewScriptedSession()
	s.TextScript["attachment-list"] = []string{"No attachments to display"}
	f := NewItemFiller(s, attachConfig(), testLogger())

	err := f.attach(context.Background(), "/receipts/receipt.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not acknowledged")
}
