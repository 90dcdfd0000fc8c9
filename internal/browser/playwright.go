package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configures the real browser session.
type PlaywrightOptions struct {
	// ProfileDir is the persistent user-data directory; keeping it between
	// runs preserves the portal login.
	ProfileDir string
	Headless   bool
}

// playwrightSession drives a Chromium page through Playwright. The portal is
// a single-page application with order-sensitive client-side state, so every
// method completes (or definitively fails) before returning.
type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywright launches Chromium with a persistent profile and returns the
// session handle.
func NewPlaywright(opts PlaywrightOptions) (Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browserCtx, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: &playwright.Size{Width: 1400, Height: 900},
		})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	var page playwright.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserCtx.NewPage()
		if err != nil {
			_ = browserCtx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("opening page: %w", err)
		}
	}

	return &playwrightSession{pw: pw, browser: browserCtx, page: page}, nil
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *playwrightSession) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms(timeout),
	})
	return err
}

func (s *playwrightSession) WaitVisible(ctx context.Context, descriptor string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(descriptor).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
}

func (s *playwrightSession) WaitHidden(ctx context.Context, descriptor string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(descriptor).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: ms(timeout),
	})
}

func (s *playwrightSession) IsVisible(ctx context.Context, descriptor string) bool {
	if ctx.Err() != nil {
		return false
	}
	visible, err := s.page.Locator(descriptor).First().IsVisible()
	return err == nil && visible
}

func (s *playwrightSession) Click(ctx context.Context, descriptor string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(descriptor).First().Click(playwright.LocatorClickOptions{
		Timeout: ms(timeout),
	})
}

func (s *playwrightSession) Fill(ctx context.Context, descriptor, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(descriptor).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: ms(timeout),
	})
}

func (s *playwrightSession) SelectByLabel(ctx context.Context, descriptor, label string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Locator(descriptor).First().SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{label},
	}, playwright.LocatorSelectOptionOptions{Timeout: ms(timeout)})
	return err
}

func (s *playwrightSession) SelectByValue(ctx context.Context, descriptor, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Locator(descriptor).First().SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	}, playwright.LocatorSelectOptionOptions{Timeout: ms(timeout)})
	return err
}

func (s *playwrightSession) Value(ctx context.Context, descriptor string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Locator(descriptor).First().InputValue()
}

func (s *playwrightSession) Text(ctx context.Context, descriptor string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Locator(descriptor).First().InnerText()
}

func (s *playwrightSession) Count(ctx context.Context, descriptor string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.page.Locator(descriptor).Count()
}

func (s *playwrightSession) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press(key)
}

func (s *playwrightSession) TypeText(ctx context.Context, text string, perKeyDelay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Type(text, playwright.KeyboardTypeOptions{
		Delay: ms(perKeyDelay),
	})
}

func (s *playwrightSession) Focused(ctx context.Context) (FocusInfo, error) {
	if err := ctx.Err(); err != nil {
		return FocusInfo{}, err
	}
	raw, err := s.page.Evaluate(`() => {
		const el = document.activeElement;
		if (!el) return { tag: "", text: "", title: "", role: "", id: "" };
		return {
			tag: el.tagName,
			text: (el.innerText || "").trim(),
			title: el.getAttribute("title") || "",
			role: el.getAttribute("role") || "",
			id: el.id || ""
		};
	}`)
	if err != nil {
		return FocusInfo{}, err
	}

	info := FocusInfo{}
	if m, ok := raw.(map[string]any); ok {
		info.Tag, _ = m["tag"].(string)
		info.Text, _ = m["text"].(string)
		info.Title, _ = m["title"].(string)
		info.Role, _ = m["role"].(string)
		info.ID, _ = m["id"].(string)
	}
	return info, nil
}

func (s *playwrightSession) SetFiles(ctx context.Context, descriptor, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Locator(descriptor).First().SetInputFiles(path)
}

func (s *playwrightSession) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.page.Evaluate(script)
}

func (s *playwrightSession) WaitSettle(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(timeout),
	})
}

func (s *playwrightSession) Close() error {
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}
