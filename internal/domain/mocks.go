package domain

import (
	"context"
	"strings"
	"sync"
)

type MockReply struct {
	Body string
	Err  error
}

type MockCall struct {
	Method string
	URL    string
}

// MockExecutor answers calls whose URL contains a registered fragment. Replies
// for a fragment are consumed in order; the last one repeats.
type MockExecutor struct {
	mu      sync.Mutex
	Replies map[string][]MockReply
	Calls   []MockCall
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Replies: map[string][]MockReply{}}
}

func (m *MockExecutor) On(fragment string, replies ...MockReply) *MockExecutor {
	m.Replies[fragment] = append(m.Replies[fragment], replies...)
	return m
}

func (m *MockExecutor) Send(_ context.Context, method, url string) (*Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, URL: url})

	best := ""
	for frag := range m.Replies {
		if strings.Contains(url, frag) && len(frag) > len(best) {
			best = frag
		}
	}
	queue := m.Replies[best]
	if len(queue) == 0 {
		return nil, nil
	}

	r := queue[0]
	if len(queue) > 1 {
		m.Replies[best] = queue[1:]
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Body == "" {
		return nil, nil
	}
	return ParsePayload([]byte(r.Body))
}

func (m *MockExecutor) CallsTo(fragment string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.Contains(c.URL, fragment) {
			n++
		}
	}
	return n
}

type MockRegistry map[string]RemoteServer

func (r MockRegistry) Lookup(name string) (RemoteServer, bool) {
	s, ok := r[name]
	return s, ok
}

// MockExpander replaces keys of Values found in text; texts listed in Fail return Err.
type MockExpander struct {
	Values map[string]string
	Fail   map[string]bool
	Err    error
}

func (e *MockExpander) Expand(text string) (string, error) {
	if e == nil {
		return text, nil
	}
	if e.Fail[text] {
		return "", e.Err
	}
	for k, v := range e.Values {
		text = strings.ReplaceAll(text, k, v)
	}
	return text, nil
}

type MockParamLoader struct {
	Lines []string
	Err   error
	Paths []string
}

func (l *MockParamLoader) Load(_ context.Context, path string) ([]string, error) {
	l.Paths = append(l.Paths, path)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Lines, nil
}

type MockNotifier struct {
	Messages []string
	Err      error
}

func (n *MockNotifier) Notify(ctx context.Context, title, body, url string) error {
	n.Messages = append(n.Messages, title+"|"+body+"|"+url)
	return n.Err
}

type MockCache struct {
	Snapshots []Snapshot
	Err       error
}

func (c *MockCache) Write(ctx context.Context, s Snapshot) error {
	if c.Err != nil {
		return c.Err
	}
	c.Snapshots = append(c.Snapshots, s)
	return nil
}

type MockAudit struct {
	Outcomes []Outcome
	Err      error
}

func (a *MockAudit) Record(ctx context.Context, o Outcome) error {
	if a.Err != nil {
		return a.Err
	}
	a.Outcomes = append(a.Outcomes, o)
	return nil
}

type MockVariableStore struct {
	Vars   Variables
	Merged []Variables
	Err    error
}

func (s *MockVariableStore) Load() (Variables, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Vars == nil {
		s.Vars = Variables{}
	}
	return s.Vars.Clone(), nil
}

func (s *MockVariableStore) Merge(vars Variables) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Vars == nil {
		s.Vars = Variables{}
	}
	s.Vars.Merge(vars)
	s.Merged = append(s.Merged, vars)
	return nil
}
