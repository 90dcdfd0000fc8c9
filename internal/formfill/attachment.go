package formfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/expenseops/autoexpense/internal/common"
)

// attach uploads the receipt image into the item's attachment panel and
// waits for the portal to acknowledge it in the attachment list. Uploads go
// through the portal's own ingestion pipeline, so the wait is long and the
// only completion signal is the list no longer reading as empty.
func (f *ItemFiller) attach(ctx context.Context, path string) error {
	sel := f.cfg.Portal.Selectors.Attachments
	timeout := f.driver.fieldTimeout

	zone, err := f.findDropZone(ctx, sel.DropZones)
	if err != nil {
		return err
	}
	if err := f.session.Click(ctx, zone, timeout); err != nil {
		return fmt.Errorf("opening attachment panel: %w", err)
	}
	if sel.AddFile != zone {
		if err := f.session.Click(ctx, sel.AddFile, timeout); err != nil {
			f.log.Debug("add file control not clickable, using file input directly", "error", err)
		}
	}
	if err := f.session.SetFiles(ctx, sel.HiddenInput, path); err != nil {
		return fmt.Errorf("handing file to upload input: %w", err)
	}

	return f.waitForUpload(ctx, sel.List, sel.EmptyText)
}

// findDropZone returns the first visible dropzone variant. The panel renders
// differently depending on whether the item already has attachments.
func (f *ItemFiller) findDropZone(ctx context.Context, zones []string) (string, error) {
	for _, zone := range zones {
		if f.session.IsVisible(ctx, zone) {
			return zone, nil
		}
	}
	return "", fmt.Errorf("%w: attachment drop zone", common.ErrControlNotFound)
}

func (f *ItemFiller) waitForUpload(ctx context.Context, list, emptyText string) error {
	wait := f.cfg.Fill.UploadTimeout
	if wait <= 0 {
		wait = time.Minute
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Uploading receipt"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	deadline := time.Now().Add(wait)
	for {
		text, err := f.session.Text(ctx, list)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" && !strings.Contains(text, emptyText) {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("upload not acknowledged within %s", wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			bar.Add(1)
		}
	}
}
