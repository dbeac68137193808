// Package memory provides a thread-safe, in-memory implementation of the
// repository stores. Each class has its own mutex so mutations on different
// classes never contend. State is lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

type classEntry struct {
	mu     sync.Mutex
	class  model.Class
	record *model.BookingRecord
}

// Store is an in-memory ClassStore and RoadmapStore.
type Store struct {
	mu       sync.RWMutex
	classes  map[string]*classEntry
	order    []string
	roadmaps map[string][]model.Roadmap
}

var (
	_ repository.ClassStore   = (*Store)(nil)
	_ repository.RoadmapStore = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		classes:  make(map[string]*classEntry),
		roadmaps: make(map[string][]model.Roadmap),
	}
}

// CreateClass inserts a new class.
func (s *Store) CreateClass(ctx context.Context, class model.Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classes[class.ClassID]; ok {
		return repository.ErrDuplicateKey
	}
	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	s.classes[class.ClassID] = &classEntry{class: class}
	s.order = append(s.order, class.ClassID)
	return nil
}

// ListClasses returns a snapshot of every class in creation order.
func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*classEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.classes[id])
	}
	s.mu.RUnlock()

	classes := make([]model.Class, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		classes = append(classes, e.class)
		e.mu.Unlock()
	}
	return classes, nil
}

// MutateClass runs fn on a copy of the class state while holding the class
// lock, and commits the copy only when fn succeeds.
func (s *Store) MutateClass(ctx context.Context, classID string, fn repository.MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	e, ok := s.classes[classID]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state := &model.ClassState{Class: e.class, Record: e.record.Clone()}
	if err := fn(state); err != nil {
		return err
	}
	// class_id is immutable.
	state.Class.ClassID = e.class.ClassID
	state.Class.ID = e.class.ID
	e.class = state.Class
	e.record = state.Record
	return nil
}

// State returns a copy of the class and its booking record.
func (s *Store) State(classID string) (model.ClassState, bool) {
	s.mu.RLock()
	e, ok := s.classes[classID]
	s.mu.RUnlock()
	if !ok {
		return model.ClassState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.ClassState{Class: e.class, Record: e.record.Clone()}, true
}

// ListUserBookings scans every booking record for confirmed reservations
// held by userID.
func (s *Store) ListUserBookings(ctx context.Context, userID string) ([]model.UserBooking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*classEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.classes[id])
	}
	s.mu.RUnlock()

	var out []model.UserBooking
	for _, e := range entries {
		e.mu.Lock()
		if e.record != nil {
			for _, r := range e.record.Bookings {
				if r.UserID == userID {
					out = append(out, model.UserBooking{
						ClassID:     e.record.ClassID,
						ClassName:   r.ClassName,
						BookingDate: r.BookingDate,
					})
				}
			}
		}
		e.mu.Unlock()
	}
	return out, nil
}

// SaveRoadmap replaces the roadmap with the same title or appends it.
func (s *Store) SaveRoadmap(ctx context.Context, email string, roadmap model.Roadmap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	roadmap = cloneRoadmap(roadmap)
	list := s.roadmaps[email]
	for i := range list {
		if list[i].Title == roadmap.Title {
			list[i].Nodes = roadmap.Nodes
			list[i].Edges = roadmap.Edges
			return nil
		}
	}
	s.roadmaps[email] = append(list, roadmap)
	return nil
}

// FetchRoadmap returns the roadmap saved under (email, title).
func (s *Store) FetchRoadmap(ctx context.Context, email, title string) (model.Roadmap, error) {
	if err := ctx.Err(); err != nil {
		return model.Roadmap{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rm := range s.roadmaps[email] {
		if rm.Title == title {
			return cloneRoadmap(rm), nil
		}
	}
	return model.Roadmap{}, repository.ErrNotFound
}

// ListProjectTitles returns the user's roadmap titles in first-save order.
func (s *Store) ListProjectTitles(ctx context.Context, email string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.roadmaps[email]))
	for _, rm := range s.roadmaps[email] {
		titles = append(titles, rm.Title)
	}
	return titles, nil
}

// cloneRoadmap deep-copies the node and edge documents so callers never
// share maps with the store.
func cloneRoadmap(rm model.Roadmap) model.Roadmap {
	rm.Nodes = cloneGraph(rm.Nodes)
	rm.Edges = cloneGraph(rm.Edges)
	return rm
}

func cloneGraph(g []map[string]any) []map[string]any {
	if g == nil {
		return nil
	}
	out := make([]map[string]any, len(g))
	for i, doc := range g {
		out[i] = cloneDoc(doc)
	}
	return out
}

func cloneDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		return cloneGraph(t)
	default:
		return v
	}
}
