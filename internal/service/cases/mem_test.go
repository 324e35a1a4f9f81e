package cases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// memStore is an in-memory Store. Filters go through CaseFilter.Matches and
// ArchiveRule.Matches, the same rules the SQL predicates encode.
type memStore struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*repo.Case
}

func newMemStore(seed ...*repo.Case) *memStore {
	m := &memStore{cases: make(map[uuid.UUID]*repo.Case)}
	for _, c := range seed {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		m.cases[c.ID] = copyCase(c)
	}
	return m
}

func copyCase(c *repo.Case) *repo.Case {
	cp := *c
	cp.Notes = append([]repo.CaseNote(nil), c.Notes...)
	cp.GlobalAttachments = append([]repo.Attachment(nil), c.GlobalAttachments...)
	return &cp
}

func (m *memStore) Create(_ context.Context, c *repo.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.PatientID != "" {
		for _, other := range m.cases {
			if other.PatientID == c.PatientID {
				return fmt.Errorf("%w: cases_patient_id_key", repo.ErrDuplicate)
			}
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.UpdatedAt = c.CreatedAt
	m.cases[c.ID] = copyCase(c)
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*repo.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyCase(c), nil
}

func (m *memStore) Save(_ context.Context, c *repo.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return repo.ErrNotFound
	}
	m.cases[c.ID] = copyCase(c)
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.cases, id)
	return nil
}

func (m *memStore) List(_ context.Context, f repo.CaseFilter, order repo.Sort, page repo.Page) ([]*repo.Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page = page.Normalize()

	var all []*repo.Case
	for _, c := range m.cases {
		if f.Matches(c) {
			all = append(all, copyCase(c))
		}
	}
	sortCases(all, order)

	start := min(page.Offset(), len(all))
	end := min(start+page.Limit, len(all))
	return all[start:end], len(all), nil
}

// sortCases orders by the time columns the tests use. The zero Sort keeps
// newest first.
func sortCases(all []*repo.Case, order repo.Sort) {
	key := func(c *repo.Case) time.Time { return c.CreatedAt }
	desc := order.Desc || order.Field == ""
	switch order.Field {
	case "updatedAt":
		key = func(c *repo.Case) time.Time { return c.UpdatedAt }
	case "archiveDate":
		key = func(c *repo.Case) time.Time {
			if c.ArchiveDate == nil {
				return time.Time{}
			}
			return *c.ArchiveDate
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return key(all[i]).After(key(all[j]))
		}
		return key(all[i]).Before(key(all[j]))
	})
}

func (m *memStore) CountByStatus(_ context.Context, f repo.CaseFilter) (map[repo.CaseStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[repo.CaseStatus]int)
	for _, c := range m.cases {
		if f.Matches(c) {
			out[c.Status]++
		}
	}
	return out, nil
}

func (m *memStore) ArchiveWhere(_ context.Context, rule repo.ArchiveRule, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.cases {
		if !rule.Matches(c, now) {
			continue
		}
		c.Status = repo.StatusArchived
		c.IsArchived = true
		c.IsInProgress = false
		c.IsCompleted = false
		at := now
		c.ArchiveDate = &at
		c.UpdatedAt = now
		n++
	}
	return n, nil
}

type memUsers map[uuid.UUID]*repo.User

func (m memUsers) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*repo.Notification
	fail bool
}

func (r *recordingNotifier) Notify(_ context.Context, n *repo.Notification) error {
	if r.fail {
		return errors.New("bus down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Type
	}
	return out
}

type recordingMailer struct {
	to, reason string
}

func (r *recordingMailer) SendCaseRejected(_ context.Context, to, _, _, reason string) error {
	r.to, r.reason = to, reason
	return nil
}
