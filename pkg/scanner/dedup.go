package scanner

import (
	"sync"

	"github.com/surge-tracker/pkg/explorer"
)

// SeenSet tracks transfer identities for one run. Overlapping segment
// re-fetches and split/retry churn would otherwise double count.
type SeenSet struct {
	mu   sync.Mutex
	keys map[explorer.TransferKey]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[explorer.TransferKey]struct{})}
}

// Add records a key and reports whether it was new.
func (s *SeenSet) Add(key explorer.TransferKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
