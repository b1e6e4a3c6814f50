// Package connstate tracks the health of the transports a Central manages:
// which issues are currently outstanding per issuer, and the accounting
// behind the XML-RPC ping/pong liveness check. Neither type has a direct
// analogue in the teacher repo (it keeps an inline timer in
// itf/regclient.go's RegisteredClient); they generalize that loop into
// explicit, independently testable state.
package connstate

import "sync"

// IssueKey identifies an outstanding problem on a specific issuer (a
// JSON-RPC session or a named XML-RPC interface) by a short issue id, e.g.
// "NO_CONNECTION" or "CALLBACK_DEAD".
type IssueKey struct {
	Issuer  string
	IssueID string
}

// State tracks issue sets per issuer. It is safe for concurrent use.
type State struct {
	mu     sync.Mutex
	issues map[IssueKey]struct{}
}

// New creates an empty State.
func New() *State {
	return &State{issues: make(map[IssueKey]struct{})}
}

// HasIssue reports whether the given issue is currently outstanding.
func (s *State) HasIssue(issuer, issueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.issues[IssueKey{issuer, issueID}]
	return ok
}

// HasAnyIssue reports whether the issuer has any outstanding issue at all.
func (s *State) HasAnyIssue(issuer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.issues {
		if k.Issuer == issuer {
			return true
		}
	}
	return false
}

// AddIssue records an issue. It returns true on first occurrence (the caller
// should log at warning level) and false on repeats (log at debug level).
func (s *State) AddIssue(issuer, issueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := IssueKey{issuer, issueID}
	if _, ok := s.issues[k]; ok {
		return false
	}
	s.issues[k] = struct{}{}
	return true
}

// RemoveIssue clears an issue. It returns true on first removal (so recovery
// is logged exactly once); repeated calls with nothing to remove return
// false.
func (s *State) RemoveIssue(issuer, issueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := IssueKey{issuer, issueID}
	if _, ok := s.issues[k]; !ok {
		return false
	}
	delete(s.issues, k)
	return true
}

// Issues returns a snapshot of every issue currently outstanding for issuer.
func (s *State) Issues(issuer string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for k := range s.issues {
		if k.Issuer == issuer {
			ids = append(ids, k.IssueID)
		}
	}
	return ids
}

// Well known issue ids.
const (
	IssueNoConnection = "NO_CONNECTION"
	IssueAuthFailure  = "AUTH_FAILURE"
	IssueCallbackDead = "CALLBACK_DEAD"
)
