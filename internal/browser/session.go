// Package browser abstracts the remote browser session the workflow drives.
// The rest of the app never assumes a markup vocabulary beyond "a descriptor
// resolves to zero-or-one interactable elements".
package browser

import (
	"context"
	"fmt"
	"time"
)

// FocusInfo describes the currently focused element, used by the
// keyboard-navigation apply strategy to recognize toolbar buttons.
type FocusInfo struct {
	Tag   string
	Text  string
	Title string
	Role  string
	ID    string
}

// Session is the single handle on the remote browser. All calls are strictly
// sequential; the session has exactly one owner.
type Session interface {
	// Goto navigates and waits for the network to settle.
	Goto(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible blocks until the descriptor resolves to a visible element.
	WaitVisible(ctx context.Context, descriptor string, timeout time.Duration) error
	// WaitHidden blocks until the descriptor no longer resolves to a visible
	// element.
	WaitHidden(ctx context.Context, descriptor string, timeout time.Duration) error
	// IsVisible reports visibility without waiting.
	IsVisible(ctx context.Context, descriptor string) bool

	Click(ctx context.Context, descriptor string, timeout time.Duration) error
	Fill(ctx context.Context, descriptor, value string, timeout time.Duration) error
	SelectByLabel(ctx context.Context, descriptor, label string, timeout time.Duration) error
	SelectByValue(ctx context.Context, descriptor, value string, timeout time.Duration) error

	// Value reads a control's committed value (the option code for selects).
	Value(ctx context.Context, descriptor string) (string, error)
	// Text reads an element's rendered text.
	Text(ctx context.Context, descriptor string) (string, error)
	// Count reports how many elements the descriptor resolves to.
	Count(ctx context.Context, descriptor string) (int, error)

	// Press sends a key chord to the focused element.
	Press(ctx context.Context, key string) error
	// TypeText types into the focused element one key event at a time.
	TypeText(ctx context.Context, text string, perKeyDelay time.Duration) error
	// Focused describes the active element.
	Focused(ctx context.Context) (FocusInfo, error)

	// SetFiles attaches a local file to a file input.
	SetFiles(ctx context.Context, descriptor, path string) error

	// Evaluate runs a script in the page and returns its result.
	Evaluate(ctx context.Context, script string) (any, error)

	// WaitSettle waits for in-flight network/DOM activity to quiet down.
	WaitSettle(ctx context.Context, timeout time.Duration) error

	Close() error
}

// Nth narrows a descriptor to the i-th match.
func Nth(descriptor string, i int) string {
	return fmt.Sprintf("%s >> nth=%d", descriptor, i)
}

// Within scopes a child descriptor under a base descriptor.
func Within(base, child string) string {
	return base + " >> " + child
}
