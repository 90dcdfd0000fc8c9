package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScriptedSession is an in-memory Session for tests. Descriptors are opaque
// keys; behavior is scripted per descriptor, and every interaction is
// recorded in Log in call order.
type ScriptedSession struct {
	mu sync.Mutex

	// Hidden marks descriptors that never become visible.
	Hidden map[string]bool
	// ValueScript queues successive Value() results per descriptor. Once a
	// queue drains, Value falls back to whatever was last committed via
	// Fill/Select, which makes the happy verification path work unscripted.
	ValueScript map[string][]string
	// TextScript queues successive Text() results per descriptor; the last
	// entry repeats once the queue drains.
	TextScript map[string][]string
	// CountScript queues successive Count() results; the last entry repeats.
	CountScript map[string][]int
	// Options maps a select descriptor's labels to their option codes.
	Options map[string]map[string]string
	// FocusScript queues Focused() results; the last entry repeats.
	FocusScript []FocusInfo

	FailClick  map[string]error
	FailFill   map[string]error
	FailSelect map[string]error

	committed map[string]string
	focusIdx  int

	// Log records every interaction, e.g. "click create-item".
	Log []string
}

// NewScriptedSession returns an empty scripted session where everything is
// visible and every action succeeds.
func NewScriptedSession() *ScriptedSession {
	return &ScriptedSession{
		Hidden:      make(map[string]bool),
		ValueScript: make(map[string][]string),
		TextScript:  make(map[string][]string),
		CountScript: make(map[string][]int),
		Options:     make(map[string]map[string]string),
		FailClick:   make(map[string]error),
		FailFill:    make(map[string]error),
		FailSelect:  make(map[string]error),
		committed:   make(map[string]string),
	}
}

func (s *ScriptedSession) record(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// Committed returns the last value committed to a descriptor.
func (s *ScriptedSession) Committed(descriptor string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed[descriptor]
}

func (s *ScriptedSession) Goto(_ context.Context, url string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("goto %s", url)
	return nil
}

func (s *ScriptedSession) WaitVisible(_ context.Context, descriptor string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wait-visible %s", descriptor)
	if s.Hidden[descriptor] {
		return fmt.Errorf("timed out waiting for %q", descriptor)
	}
	return nil
}

func (s *ScriptedSession) WaitHidden(_ context.Context, descriptor string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wait-hidden %s", descriptor)
	if !s.Hidden[descriptor] {
		return fmt.Errorf("%q still visible", descriptor)
	}
	return nil
}

func (s *ScriptedSession) IsVisible(_ context.Context, descriptor string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Hidden[descriptor]
}

func (s *ScriptedSession) Click(_ context.Context, descriptor string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("click %s", descriptor)
	if err := s.FailClick[descriptor]; err != nil {
		return err
	}
	return nil
}

func (s *ScriptedSession) Fill(_ context.Context, descriptor, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("fill %s=%s", descriptor, value)
	if err := s.FailFill[descriptor]; err != nil {
		return err
	}
	s.committed[descriptor] = value
	return nil
}

func (s *ScriptedSession) SelectByLabel(_ context.Context, descriptor, label string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("select-label %s=%s", descriptor, label)
	if err := s.FailSelect[descriptor]; err != nil {
		return err
	}
	if codes, ok := s.Options[descriptor]; ok {
		if code, ok := codes[label]; ok {
			s.committed[descriptor] = code
			return nil
		}
		return fmt.Errorf("no option labeled %q in %q", label, descriptor)
	}
	s.committed[descriptor] = label
	return nil
}

func (s *ScriptedSession) SelectByValue(_ context.Context, descriptor, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("select-value %s=%s", descriptor, value)
	if err := s.FailSelect[descriptor]; err != nil {
		return err
	}
	s.committed[descriptor] = value
	return nil
}

func (s *ScriptedSession) Value(_ context.Context, descriptor string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if queue := s.ValueScript[descriptor]; len(queue) > 0 {
		v := queue[0]
		s.ValueScript[descriptor] = queue[1:]
		return v, nil
	}
	return s.committed[descriptor], nil
}

func (s *ScriptedSession) Text(_ context.Context, descriptor string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.TextScript[descriptor]
	if len(queue) == 0 {
		return "", nil
	}
	v := queue[0]
	if len(queue) > 1 {
		s.TextScript[descriptor] = queue[1:]
	}
	return v, nil
}

func (s *ScriptedSession) Count(_ context.Context, descriptor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue, ok := s.CountScript[descriptor]
	if !ok || len(queue) == 0 {
		// Unscripted counts look populated so the happy path needs no setup.
		return 2, nil
	}
	v := queue[0]
	if len(queue) > 1 {
		s.CountScript[descriptor] = queue[1:]
	}
	return v, nil
}

func (s *ScriptedSession) Press(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("press %s", key)
	return nil
}

func (s *ScriptedSession) TypeText(_ context.Context, text string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("type %s", text)
	return nil
}

func (s *ScriptedSession) Focused(_ context.Context) (FocusInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.FocusScript) == 0 {
		return FocusInfo{}, nil
	}
	info := s.FocusScript[s.focusIdx]
	if s.focusIdx < len(s.FocusScript)-1 {
		s.focusIdx++
	}
	return info, nil
}

func (s *ScriptedSession) SetFiles(_ context.Context, descriptor, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("set-files %s=%s", descriptor, path)
	return nil
}

func (s *ScriptedSession) Evaluate(_ context.Context, script string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("evaluate %s", firstLine(script))
	return nil, nil
}

func (s *ScriptedSession) WaitSettle(_ context.Context, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wait-settle")
	return nil
}

func (s *ScriptedSession) Close() error {
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
