package workflow

import (
	"sort"
	"sync"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/logger"

	"github.com/robbyt/go-fsm"
)

// caseEntry is one active case with its lock and stage machine.
// The mutex serializes every read-validate-commit on the case.
type caseEntry struct {
	mu      sync.Mutex
	c       domain.ApplicationCase
	machine *fsm.Machine
	closed  bool
}

// Registry holds the active cases of every tenant: the lock table of the engine.
type Registry struct {
	mu    sync.Mutex
	cases map[caseKey]*caseEntry
}

func NewRegistry() *Registry {
	return &Registry{cases: map[caseKey]*caseEntry{}}
}

func (r *Registry) open(c domain.ApplicationCase) (*caseEntry, error) {
	machine, err := fsm.New(logger.Handler(), string(c.Stage), domain.StageTransitions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "failed to create stage machine", err)
	}

	e := &caseEntry{c: c, machine: machine}
	key := caseKey{c.TenantID, c.Applicant.ID}

	r.mu.Lock()
	existing, exists := r.cases[key]
	if !exists {
		r.cases[key] = e
	}
	r.mu.Unlock()

	if exists {
		// Entry locks are never taken while holding r.mu.
		existing.mu.Lock()
		meta := map[string]string{"channel": existing.c.ChannelID, "case_id": existing.c.ID}
		existing.mu.Unlock()
		return nil, apperrors.WithMetadata(apperrors.CodeCaseAlreadyOpen, "applicant already has an open case", meta)
	}
	return e, nil
}

func (r *Registry) lookup(tenantID, applicantID string) (*caseEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cases[caseKey{tenantID, applicantID}]
	return e, ok
}

// close removes e from the table. Callers hold e.mu.
func (r *Registry) close(e *caseEntry) {
	e.closed = true
	r.mu.Lock()
	defer r.mu.Unlock()
	key := caseKey{e.c.TenantID, e.c.Applicant.ID}
	if r.cases[key] == e {
		delete(r.cases, key)
	}
}

// Get returns a snapshot of an active case.
func (r *Registry) Get(tenantID, applicantID string) (domain.ApplicationCase, bool) {
	e, ok := r.lookup(tenantID, applicantID)
	if !ok {
		return domain.ApplicationCase{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ApplicationCase{}, false
	}
	return e.snapshot(), true
}

// List returns snapshots of the active cases of a tenant, oldest first.
func (r *Registry) List(tenantID string) []domain.ApplicationCase {
	r.mu.Lock()
	entries := make([]*caseEntry, 0, len(r.cases))
	for k, e := range r.cases {
		if k.tenantID == tenantID {
			entries = append(entries, e)
		}
	}
	r.mu.Unlock()

	out := make([]domain.ApplicationCase, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed {
			out = append(out, e.snapshot())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].Applicant.ID < out[j].Applicant.ID
	})
	return out
}

// Counts returns the number of active cases per stage across all tenants.
func (r *Registry) Counts() map[domain.Stage]int {
	r.mu.Lock()
	entries := make([]*caseEntry, 0, len(r.cases))
	for _, e := range r.cases {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	counts := map[domain.Stage]int{}
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed {
			counts[e.c.Stage]++
		}
		e.mu.Unlock()
	}
	return counts
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cases)
}

func (e *caseEntry) snapshot() domain.ApplicationCase {
	c := e.c
	if e.c.Submission != nil {
		s := *e.c.Submission
		c.Submission = &s
	}
	return c
}
