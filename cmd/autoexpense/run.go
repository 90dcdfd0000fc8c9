package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/expenseops/autoexpense/internal/browser"
	"github.com/expenseops/autoexpense/internal/cli"
	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/dates"
	"github.com/expenseops/autoexpense/internal/extract"
	"github.com/expenseops/autoexpense/internal/formfill"
	"github.com/expenseops/autoexpense/internal/journal"
	"github.com/expenseops/autoexpense/internal/model"
	"github.com/expenseops/autoexpense/internal/report"
	"github.com/expenseops/autoexpense/internal/workflow"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a folder of receipts into the expense portal",
		RunE:  runReceipts,
	}
	cmd.Flags().String("folder", "", "receipts folder (defaults to the last used folder)")
	cmd.Flags().Bool("dry-run", false, "extract and summarize without opening the portal")
	cmd.Flags().Bool("verbose", false, "record raw extractor responses in the journal")
	return cmd
}

func runReceipts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(dryRun); err != nil {
		return common.NewUserError("configuration is incomplete, see the README", err)
	}

	prompter := cli.NewPrompter(os.Stdin, os.Stdout)

	folder, err := pickFolder(ctx, cmd, cfg, prompter)
	if err != nil {
		return err
	}
	receipts, err := collectReceipts(folder, cfg.Receipts.Extensions)
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		return common.NewUserError(fmt.Sprintf("no receipt images found in %s", folder), nil)
	}
	fmt.Println(cli.FormatTitle(fmt.Sprintf("Processing %d receipts from %s", len(receipts), folder)))

	jrnl, err := journal.Open(config.ExpandPath(cfg.Logging.Journal), verbose)
	if err != nil {
		return err
	}
	defer func() { _ = jrnl.Close() }()

	extractor, err := extract.Bootstrap(ctx, extract.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Types:    cfg.Types,
	})
	if err != nil {
		return common.NewUserError("the receipt extractor is not reachable", err)
	}
	defer func() { _ = extractor.Close() }()

	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx = interrupts.HandleInterrupts(ctx)

	reports, filler, cleanup, err := connectPortal(ctx, cfg, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()

	wf := workflow.New(extractor, reports, filler,
		dates.NewResolver(prompter), jrnl,
		workflow.Config{DryRun: dryRun, HomeCity: cfg.User.HomeCity},
		slog.Default())

	state, runErr := wf.Run(ctx, receipts)
	prompter.ShowSummary(jrnl.Entries(), state.TotalsByCurrency, dryRun)

	if err := config.SaveLastFolder(folder); err != nil {
		slog.Warn("last folder not saved", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if !state.Succeeded() {
		return common.NewUserError("no receipts were filed", nil)
	}
	if !dryRun {
		fmt.Println(cli.FormatSuccess("Done. Review and submit the report in the portal."))
	}
	return nil
}

// connectPortal opens the browser session and waits out the login, or hands
// back inert stand-ins for a dry run.
func connectPortal(ctx context.Context, cfg *config.Config, dryRun bool) (workflow.ReportManager, workflow.ItemFiller, func(), error) {
	if dryRun {
		return offlineReports{}, offlineFiller{}, func() {}, nil
	}

	session, err := browser.NewPlaywright(browser.PlaywrightOptions{
		ProfileDir: cfg.Portal.Profile,
		Headless:   cfg.Portal.Headless,
	})
	if err != nil {
		return nil, nil, nil, common.NewUserError("could not start the browser", err)
	}
	cleanup := func() { _ = session.Close() }

	if err := session.Goto(ctx, cfg.Portal.URL, cfg.Portal.LoginWait); err != nil {
		cleanup()
		return nil, nil, nil, common.NewUserError("could not open the expense portal", err)
	}

	manager := report.NewManager(session, cfg, slog.Default())
	if err := manager.WaitForLogin(ctx, cfg.Portal.LoginWait); err != nil {
		cleanup()
		return nil, nil, nil, common.NewUserError("login was not completed in time", err)
	}

	return manager, formfill.NewItemFiller(session, cfg, slog.Default()), cleanup, nil
}

func pickFolder(ctx context.Context, cmd *cobra.Command, cfg *config.Config, prompter *cli.Prompter) (string, error) {
	if folder, _ := cmd.Flags().GetString("folder"); folder != "" {
		return config.ExpandPath(folder), nil
	}
	if cfg.Receipts.Folder != "" {
		return cfg.Receipts.Folder, nil
	}

	folder, err := prompter.AskFolder(ctx, cfg.Receipts.LastFolder)
	if err != nil {
		return "", err
	}
	if folder == "" {
		return "", common.NewUserError("a receipts folder is required", nil)
	}
	return config.ExpandPath(folder), nil
}

// collectReceipts lists the image files in the folder in name order, which
// for dated exports (IMG_2024..., receipt-001...) is chronological order.
func collectReceipts(folder string, extensions []string) ([]string, error) {
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot read folder %s", folder), err)
	}

	var receipts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if wanted[strings.ToLower(filepath.Ext(entry.Name()))] {
			receipts = append(receipts, filepath.Join(folder, entry.Name()))
		}
	}
	sort.Strings(receipts)
	return receipts, nil
}

// offlineReports and offlineFiller satisfy the workflow without a browser.
// A dry run never reaches FillItem; the panic guards that invariant.
type offlineReports struct{}

func (offlineReports) FindOpen(context.Context) (bool, []model.ExistingItem, error) {
	return false, nil, nil
}

func (offlineReports) Create(context.Context, string) error { return nil }

type offlineFiller struct{}

func (offlineFiller) FillItem(context.Context, *model.ReceiptRecord, string, string, bool) (model.FillOutcome, error) {
	panic("dry run must never drive the form")
}

func (offlineFiller) AdvanceNext(context.Context) error { return nil }

func (offlineFiller) Finalize(context.Context) error { return nil }
