package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jeefy/recordchat/internal/models"
)

// inMemoryStore is the in-memory implementation of Store used for testing and
// local development.
type inMemoryStore struct {
	mu      sync.RWMutex
	records map[int64]*models.Record
}

// New returns a new in-memory Store implementation.
func New() (Store, error) {
	return &inMemoryStore{records: make(map[int64]*models.Record)}, nil
}

func (s *inMemoryStore) List(ctx context.Context) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(models.Record) bool { return true }, 0), nil
}

func (s *inMemoryStore) Search(ctx context.Context, q string, limit int) ([]models.Record, error) {
	qlow := strings.ToLower(q)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(r models.Record) bool {
		return strings.Contains(strings.ToLower(r.Name), qlow) ||
			strings.Contains(strings.ToLower(r.Value), qlow)
	}, limit), nil
}

// sortedLocked returns matching records ordered by id. A limit <= 0 means no cap.
func (s *inMemoryStore) sortedLocked(match func(models.Record) bool, limit int) []models.Record {
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []models.Record{}
	for _, id := range ids {
		r := *s.records[id]
		if !match(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (s *inMemoryStore) Get(ctx context.Context, id int64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *inMemoryStore) Update(ctx context.Context, rec models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[rec.ID]
	if !ok {
		return nil, ErrNotFound
	}
	current.Name = rec.Name
	current.Value = rec.Value
	cp := *current
	return &cp, nil
}

func (s *inMemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// InsertMany is all-or-nothing: a duplicate id, whether already stored or
// repeated within recs, leaves the store unchanged.
func (s *inMemoryStore) InsertMany(ctx context.Context, recs []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{}, len(recs))
	for _, r := range recs {
		if _, ok := s.records[r.ID]; ok {
			return ErrDuplicateID
		}
		if _, ok := seen[r.ID]; ok {
			return ErrDuplicateID
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range recs {
		cp := r
		s.records[r.ID] = &cp
	}
	return nil
}

func (s *inMemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[int64]*models.Record)
	return nil
}

func (s *inMemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *inMemoryStore) Close(ctx context.Context) error { return nil }
