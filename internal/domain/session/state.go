// Package session holds the per-visit conversation state of CleverQ:
// named tabs, each with a newest-first list of question/response exchanges.
// State is owned by one browser session and never outlives the process.
package session

import (
	"errors"
	"strings"
)

// DefaultTabName is the tab every new session starts on.
const DefaultTabName = "Main"

var (
	// ErrUnknownTab is returned when an operation names a tab that does not exist.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrSessionNotFound is returned by a Store when no live state exists for an id.
	ErrSessionNotFound = errors.New("session not found")
)

// Exchange is one question/response pair.
type Exchange struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// ConversationTab is a named, independent history.
// questions[i] and responses[i] always describe the same exchange; index 0 is the newest.
type ConversationTab struct {
	name      string
	questions []string
	responses []string
}

func newTab(name string) *ConversationTab {
	return &ConversationTab{name: name, questions: []string{}, responses: []string{}}
}

// Name returns the tab key.
func (t *ConversationTab) Name() string { return t.name }

// Len returns the number of exchanges.
func (t *ConversationTab) Len() int { return len(t.questions) }

// Questions returns a copy of the questions, newest first.
func (t *ConversationTab) Questions() []string { return append([]string(nil), t.questions...) }

// Responses returns a copy of the responses, newest first.
func (t *ConversationTab) Responses() []string { return append([]string(nil), t.responses...) }

// Exchanges returns the history as pairs, newest first.
func (t *ConversationTab) Exchanges() []Exchange {
	out := make([]Exchange, len(t.questions))
	for i := range t.questions {
		out[i] = Exchange{Question: t.questions[i], Response: t.responses[i]}
	}
	return out
}

func (t *ConversationTab) prepend(question, response string) {
	t.questions = append([]string{question}, t.questions...)
	t.responses = append([]string{response}, t.responses...)
}

func (t *ConversationTab) clone() *ConversationTab {
	return &ConversationTab{
		name:      t.name,
		questions: append([]string{}, t.questions...),
		responses: append([]string{}, t.responses...),
	}
}

// State is the mutable state of one session.
// Invariants: tabs always contains DefaultTabName or a later tab, and current is a key of tabs.
type State struct {
	tabs    map[string]*ConversationTab
	order   []string
	current string
	pending string
}

// New returns the initial state: a single empty "Main" tab selected, no pending input.
func New() *State {
	s := &State{tabs: make(map[string]*ConversationTab)}
	s.addTab(DefaultTabName)
	s.current = DefaultTabName
	return s
}

func (s *State) addTab(name string) *ConversationTab {
	tab := newTab(name)
	s.tabs[name] = tab
	s.order = append(s.order, name)
	return tab
}

// CreateTab adds an empty tab and makes it current.
// It is a silent no-op (returning false) when the trimmed name is empty or already taken.
func (s *State) CreateTab(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if _, exists := s.tabs[name]; exists {
		return false
	}
	s.addTab(name)
	s.current = name
	return true
}

// SelectTab makes name the current tab. Surrounding whitespace is ignored,
// as in CreateTab.
func (s *State) SelectTab(name string) error {
	name = strings.TrimSpace(name)
	if _, ok := s.tabs[name]; !ok {
		return ErrUnknownTab
	}
	s.current = name
	return nil
}

// RecordExchange prepends one exchange to the named tab.
func (s *State) RecordExchange(tabName, question, response string) error {
	tab, ok := s.tabs[tabName]
	if !ok {
		return ErrUnknownTab
	}
	tab.prepend(question, response)
	return nil
}

// CurrentTab returns the name of the selected tab.
func (s *State) CurrentTab() string { return s.current }

// Current returns the selected tab.
func (s *State) Current() *ConversationTab { return s.tabs[s.current] }

// Tab looks up a tab by name.
func (s *State) Tab(name string) (*ConversationTab, bool) {
	t, ok := s.tabs[name]
	return t, ok
}

// TabNames returns tab names in creation order.
func (s *State) TabNames() []string { return append([]string(nil), s.order...) }

// PendingInput returns the text currently held in the question control.
func (s *State) PendingInput() string { return s.pending }

// SetPendingInput replaces the pending question text.
func (s *State) SetPendingInput(text string) { s.pending = text }

// Clone returns a deep copy that shares no slices with s.
func (s *State) Clone() *State {
	out := &State{
		tabs:    make(map[string]*ConversationTab, len(s.tabs)),
		order:   append([]string(nil), s.order...),
		current: s.current,
		pending: s.pending,
	}
	for name, tab := range s.tabs {
		out.tabs[name] = tab.clone()
	}
	return out
}
