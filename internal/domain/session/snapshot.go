package session

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is returned by Restore when a snapshot violates State invariants.
var ErrInvalidSnapshot = errors.New("invalid session snapshot")

// TabSnapshot is the flat form of one ConversationTab.
type TabSnapshot struct {
	Name      string     `json:"name"`
	Exchanges []Exchange `json:"exchanges"`
}

// Snapshot is a flat, serializable copy of a State.
type Snapshot struct {
	Tabs         []TabSnapshot `json:"tabs"`
	CurrentTab   string        `json:"current_tab"`
	PendingInput string        `json:"pending_input"`
}

// Snapshot flattens s. Tabs appear in creation order, exchanges newest first.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Tabs:         make([]TabSnapshot, 0, len(s.order)),
		CurrentTab:   s.current,
		PendingInput: s.pending,
	}
	for _, name := range s.order {
		snap.Tabs = append(snap.Tabs, TabSnapshot{Name: name, Exchanges: s.tabs[name].Exchanges()})
	}
	return snap
}

// Restore rebuilds a State from a snapshot.
func Restore(snap Snapshot) (*State, error) {
	if len(snap.Tabs) == 0 {
		return nil, fmt.Errorf("%w: no tabs", ErrInvalidSnapshot)
	}
	s := &State{tabs: make(map[string]*ConversationTab, len(snap.Tabs))}
	for _, ts := range snap.Tabs {
		if ts.Name == "" {
			return nil, fmt.Errorf("%w: empty tab name", ErrInvalidSnapshot)
		}
		if _, dup := s.tabs[ts.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tab %q", ErrInvalidSnapshot, ts.Name)
		}
		tab := s.addTab(ts.Name)
		for _, ex := range ts.Exchanges {
			tab.questions = append(tab.questions, ex.Question)
			tab.responses = append(tab.responses, ex.Response)
		}
	}
	if _, ok := s.tabs[snap.CurrentTab]; !ok {
		return nil, fmt.Errorf("%w: current tab %q not present", ErrInvalidSnapshot, snap.CurrentTab)
	}
	s.current = snap.CurrentTab
	s.pending = snap.PendingInput
	return s, nil
}
