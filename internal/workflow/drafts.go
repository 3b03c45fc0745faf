package workflow

import (
	"sync"
	"time"

	"whitelist-bot/internal/domain"
)

type caseKey struct {
	tenantID    string
	applicantID string
}

// CaseStore holds the in-flight form drafts, keyed by tenant and applicant.
// A draft lives between form submission and legal status selection.
type CaseStore struct {
	mu     sync.Mutex
	drafts map[caseKey]domain.Draft
	now    func() time.Time
}

func NewCaseStore() *CaseStore {
	return &CaseStore{drafts: map[caseKey]domain.Draft{}, now: time.Now}
}

// Put stores or replaces a draft, stamping CreatedAt when unset.
func (s *CaseStore) Put(tenantID, applicantID string, d domain.Draft) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[caseKey{tenantID, applicantID}] = d
}

func (s *CaseStore) Get(tenantID, applicantID string) (domain.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[caseKey{tenantID, applicantID}]
	return d, ok
}

func (s *CaseStore) Remove(tenantID, applicantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, caseKey{tenantID, applicantID})
}

// EvictOlderThan drops every draft created before cutoff and returns how many were dropped.
func (s *CaseStore) EvictOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, d := range s.drafts {
		if d.CreatedAt.Before(cutoff) {
			delete(s.drafts, k)
			n++
		}
	}
	return n
}

func (s *CaseStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
