package memstore

import (
	"context"
	"sort"
	"sync"

	"escrow-service/internal/domain"
)

// ProjectStore implements domain.ProjectStore in process memory. It is
// used by tests and by the in-memory driver for local development.
// Serialization is coarser than the contract requires: one store-wide
// mutex covers all projects.
type ProjectStore struct {
	mu       sync.RWMutex
	nextID   int64
	projects map[int64]*domain.Project
	events   []domain.Event
}

// NewProjectStore creates an empty ProjectStore.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		nextID:   1,
		projects: make(map[int64]*domain.Project),
	}
}

// Create assigns the next id and stores a deep copy of the aggregate.
func (s *ProjectStore) Create(ctx context.Context, p *domain.Project, events func(p *domain.Project) []domain.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := p.Clone()
	cp.ID = s.nextID
	s.nextID++
	s.projects[cp.ID] = cp
	if events != nil {
		s.events = append(s.events, events(cp)...)
	}
	return cp.ID, nil
}

// Get returns a deep copy of the aggregate.
func (s *ProjectStore) Get(ctx context.Context, id int64) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

// List returns newest-first summaries.
func (s *ProjectStore) List(ctx context.Context, limit, offset int) ([]domain.ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	summaries := make([]domain.ProjectSummary, 0, limit)
	for i := offset; i < len(ids) && len(summaries) < limit; i++ {
		p := s.projects[ids[i]]
		summaries = append(summaries, domain.ProjectSummary{
			ID:               p.ID,
			Creator:          p.Creator,
			Title:            p.Title,
			GoalAmount:       p.GoalAmount,
			FundsRaised:      p.FundsRaised,
			Deadline:         p.Deadline,
			Completed:        p.Completed,
			CurrentMilestone: p.CurrentMilestone,
			MilestoneCount:   len(p.Milestones),
			CreatedAt:        p.CreatedAt,
		})
	}
	return summaries, nil
}

// Update runs fn against a copy of the aggregate and commits the copy
// together with the returned events, or discards it when fn errors.
func (s *ProjectStore) Update(ctx context.Context, id int64, fn func(p *domain.Project) ([]domain.Event, error)) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	next := current.Clone()
	events, err := fn(next)
	if err != nil {
		return nil, err
	}

	s.projects[id] = next
	s.events = append(s.events, events...)
	return next.Clone(), nil
}

// Events returns a copy of every event recorded so far, oldest first.
func (s *ProjectStore) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}
