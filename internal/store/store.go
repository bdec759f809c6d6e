// Package store holds the signed-in user's tasks and the view over them.
// Every change recomputes the visible list as Sort(Filter(all, filters), sort)
// and hands a snapshot to subscribers.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/tasks"
)

// Gateway persists tasks. api.Client implements it.
type Gateway interface {
	List(ctx context.Context) ([]models.Task, error)
	Create(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, id string) error
}

// Identity reports who is signed in. auth.Session implements it.
type Identity interface {
	CurrentUser() *models.User
	Subscribe(fn func(*models.User)) (cancel func())
}

// Snapshot is the state handed to subscribers. Visible is never shared
// with the store or with other snapshots. Seq grows with every change, so
// a higher Seq is always the newer state.
type Snapshot struct {
	Seq        uint64
	Visible    []models.Task
	Total      int
	Categories []string // distinct categories across all tasks
	Filters    models.FilterSet
	Sort       models.SortKey
	Loading    bool
}

// Store is the task collection of the current identity
type Store struct {
	gateway  Gateway
	identity Identity
	log      *log.Logger

	// notifyMu orders changes with their delivery; it is taken before mu
	notifyMu sync.Mutex

	mu      sync.RWMutex
	seq     uint64
	all     []models.Task
	visible []models.Task
	filters models.FilterSet
	sort    models.SortKey
	pending int // refreshes in flight

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

// New creates an empty store. Nothing is fetched until Refresh is called
// or the identity changes after Attach.
func New(gateway Gateway, identity Identity, logger *log.Logger) *Store {
	return &Store{
		gateway:  gateway,
		identity: identity,
		log:      logger,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Refresh replaces the collection with the gateway's list. Without an
// identity the collection is cleared and the gateway is not called.
func (s *Store) Refresh(ctx context.Context) error {
	u := s.identity.CurrentUser()
	if u == nil {
		s.mutate(func() { s.all = nil })
		return nil
	}

	s.mutate(func() { s.pending++ })
	list, err := s.gateway.List(ctx)
	if err != nil {
		s.mutate(func() { s.pending-- })
		s.log.WithError(err).Error("refresh tasks")
		return fmt.Errorf("refresh: %w", err)
	}

	// a sign-out or account switch while the list was in flight must not
	// leak the previous user's tasks
	if cur := s.identity.CurrentUser(); cur == nil || cur.ID != u.ID {
		s.mutate(func() { s.pending-- })
		s.log.WithField("user_id", u.ID).Debug("discarding refresh for previous identity")
		return nil
	}

	s.mutate(func() {
		s.pending--
		s.all = list
	})
	s.log.WithField("count", len(list)).Debug("tasks refreshed")
	return nil
}

// Create validates draft, persists it and appends the stored task
func (s *Store) Create(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	draft = draft.Normalized()
	if err := draft.Validate(); err != nil {
		return models.Task{}, err
	}
	t, err := s.gateway.Create(ctx, draft)
	if err != nil {
		s.log.WithError(err).Error("create task")
		return models.Task{}, fmt.Errorf("create: %w", err)
	}
	s.mutate(func() {
		s.all = append(slices.Clip(s.all), t)
	})
	return t, nil
}

// Update persists patch and replaces the task with the gateway's copy. A
// task the store does not hold is still sent; the result is only applied
// when a matching id is present.
func (s *Store) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	if err := patch.Validate(); err != nil {
		return models.Task{}, err
	}
	t, err := s.gateway.Update(ctx, id, patch)
	if err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("update task")
		return models.Task{}, fmt.Errorf("update: %w", err)
	}
	s.mutate(func() {
		i := slices.IndexFunc(s.all, func(x models.Task) bool { return x.ID == id })
		if i < 0 {
			return
		}
		next := slices.Clone(s.all)
		next[i] = t
		s.all = next
	})
	return t, nil
}

// Delete removes a task. Deleting an id the store does not hold is not an
// error as long as the gateway accepts it.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gateway.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("task_id", id).Error("delete task")
		return fmt.Errorf("delete: %w", err)
	}
	s.mutate(func() {
		s.all = slices.DeleteFunc(slices.Clone(s.all), func(x models.Task) bool { return x.ID == id })
	})
	return nil
}

// ApplyFilter replaces the active filter set
func (s *Store) ApplyFilter(f models.FilterSet) {
	f = f.Clone()
	s.mutate(func() { s.filters = f })
}

// ClearFilters resets the filter set. The sort key is kept.
func (s *Store) ClearFilters() {
	s.mutate(func() { s.filters = models.FilterSet{} })
}

// ApplySort replaces the active sort key
func (s *Store) ApplySort(key models.SortKey) {
	s.mutate(func() { s.sort = key })
}

// Visible returns a fresh copy of the visible list
func (s *Store) Visible() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.visible)
}

// Loading reports whether a refresh is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

// ActiveFilters returns the current filter set
func (s *Store) ActiveFilters() models.FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// ActiveSort returns the current sort key
func (s *Store) ActiveSort() models.SortKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// Task looks a task up by id, ignoring filters
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.all, func(x models.Task) bool { return x.ID == id })
	if i < 0 {
		return models.Task{}, false
	}
	return s.all[i], true
}

// Snapshot returns the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every change.
// fn runs on the goroutine that made the change and sees changes in order.
// It may read the store but must not change it.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// IdentityChanged reacts to a sign-in, sign-out or account switch by
// refreshing. A nil user clears the collection.
func (s *Store) IdentityChanged(ctx context.Context, u *models.User) error {
	if u == nil {
		s.log.Debug("identity removed, clearing tasks")
	} else {
		s.log.WithField("user_id", u.ID).Debug("identity changed, refreshing")
	}
	return s.Refresh(ctx)
}

// Attach follows the identity: every transition triggers a refresh on its
// own goroutine. Failures are logged; the caller sees them through the
// snapshot's unchanged state.
func (s *Store) Attach(ctx context.Context) (detach func()) {
	return s.identity.Subscribe(func(u *models.User) {
		go func() {
			if err := s.IdentityChanged(ctx, u); err != nil {
				s.log.WithError(err).Warn("refresh after identity change")
			}
		}()
	})
}

// mutate applies fn under the lock, recomputes the visible list and
// notifies subscribers after the lock is released. Holding notifyMu across
// both steps keeps deliveries in the order the changes were made.
func (s *Store) mutate(fn func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn()
	s.seq++
	s.visible = tasks.Sort(tasks.Filter(s.all, s.filters), s.sort)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:        s.seq,
		Visible:    slices.Clone(s.visible),
		Total:      len(s.all),
		Categories: tasks.Categories(s.all),
		Filters:    s.filters.Clone(),
		Sort:       s.sort,
		Loading:    s.pending > 0,
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(Snapshot{
			Seq:        snap.Seq,
			Visible:    slices.Clone(snap.Visible),
			Total:      snap.Total,
			Categories: slices.Clone(snap.Categories),
			Filters:    snap.Filters.Clone(),
			Sort:       snap.Sort,
			Loading:    snap.Loading,
		})
	}
}
