package ui

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/store"
	"github.com/tgienger/stmc/internal/ui/views"
)

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

// source is a minimal observable used for both snapshots and identities
type source[T any] struct {
	mu  sync.Mutex
	fns []func(T)
}

func (s *source[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	i := len(s.fns) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fns[i] = nil
	}
}

func (s *source[T]) emit(v T) {
	s.mu.Lock()
	fns := slices.Clone(s.fns)
	s.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(v)
		}
	}
}

func receive(t *testing.T, c chanSender) tea.Msg {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message forwarded")
		return nil
	}
}

func TestBindForwardsSnapshots(t *testing.T) {
	out := make(chanSender, 4)
	snaps := &source[store.Snapshot]{}
	idents := &source[*models.User]{}
	unbind := Bind(out, snaps, idents)
	defer unbind()

	snaps.emit(store.Snapshot{Total: 3})

	msg := receive(t, out)
	require.IsType(t, views.SnapshotMsg{}, msg)
	assert.Equal(t, 3, msg.(views.SnapshotMsg).Snapshot.Total)
}

func TestBindCopiesIdentity(t *testing.T) {
	out := make(chanSender, 4)
	snaps := &source[store.Snapshot]{}
	idents := &source[*models.User]{}
	unbind := Bind(out, snaps, idents)
	defer unbind()

	u := &models.User{ID: "u1", Email: "ada@example.com"}
	idents.emit(u)
	msg := receive(t, out).(views.IdentityMsg)
	u.Email = "changed"

	require.NotNil(t, msg.User)
	assert.Equal(t, "ada@example.com", msg.User.Email)

	idents.emit(nil)
	assert.Nil(t, receive(t, out).(views.IdentityMsg).User)
}

func TestBindNeverBlocksTheNotifier(t *testing.T) {
	out := make(chanSender) // nobody reads yet
	snaps := &source[store.Snapshot]{}
	idents := &source[*models.User]{}
	unbind := Bind(out, snaps, idents)
	defer unbind()

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 50; i++ {
			snaps.emit(store.Snapshot{Total: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier blocked on the program")
	}

	// only the latest value is guaranteed to arrive
	var last int
	for last != 50 {
		last = receive(t, out).(views.SnapshotMsg).Snapshot.Total
	}
}

func TestBindDropsOlderSnapshots(t *testing.T) {
	out := make(chanSender, 4)
	snaps := &source[store.Snapshot]{}
	idents := &source[*models.User]{}
	unbind := Bind(out, snaps, idents)
	defer unbind()

	snaps.emit(store.Snapshot{Seq: 2, Sort: models.SortPriority})
	assert.Equal(t, uint64(2), receive(t, out).(views.SnapshotMsg).Snapshot.Seq)

	snaps.emit(store.Snapshot{Seq: 1, Sort: models.SortTitle})
	snaps.emit(store.Snapshot{Seq: 3, Sort: models.SortDeadline})

	msg := receive(t, out).(views.SnapshotMsg)
	assert.Equal(t, models.SortDeadline, msg.Snapshot.Sort)
	select {
	case extra := <-out:
		t.Fatalf("unexpected message %#v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnbindStopsForwarding(t *testing.T) {
	out := make(chanSender, 4)
	snaps := &source[store.Snapshot]{}
	idents := &source[*models.User]{}
	unbind := Bind(out, snaps, idents)

	unbind()
	unbind()
	snaps.emit(store.Snapshot{Total: 1})

	select {
	case msg := <-out:
		t.Fatalf("unexpected message %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeSession struct {
	user    *models.User
	logouts int
}

func (s *fakeSession) Login(_ context.Context, email, _ string) (models.User, error) {
	return models.User{ID: "u1", Email: email}, nil
}

func (s *fakeSession) Register(_ context.Context, email, _ string) (models.User, error) {
	return models.User{ID: "u1", Email: email}, nil
}

func (s *fakeSession) CurrentUser() *models.User { return s.user }

func (s *fakeSession) Logout() error {
	s.logouts++
	s.user = nil
	return nil
}

type nopStore struct{ snap store.Snapshot }

func (nopStore) Refresh(context.Context) error { return nil }
func (nopStore) Create(context.Context, models.TaskDraft) (models.Task, error) {
	return models.Task{}, nil
}
func (nopStore) Update(context.Context, string, models.TaskPatch) (models.Task, error) {
	return models.Task{}, nil
}
func (nopStore) Delete(context.Context, string) error { return nil }
func (nopStore) ApplyFilter(models.FilterSet)         {}
func (nopStore) ClearFilters()                        {}
func (nopStore) ApplySort(models.SortKey)             {}
func (nopStore) Task(string) (models.Task, bool)      { return models.Task{}, false }
func (s nopStore) Snapshot() store.Snapshot           { return s.snap }

type nopPrefs struct{}

func (nopPrefs) GetSetting(string) (string, error)       { return "", nil }
func (nopPrefs) SetSetting(string, string) error         { return nil }
func (nopPrefs) ListCategories() ([]string, error)       { return nil, nil }
func (nopPrefs) AddCategory(name string) (string, error) { return name, nil }

func newApp(u *models.User) (*App, *fakeSession) {
	logger, _ := test.NewNullLogger()
	sess := &fakeSession{user: u}
	return NewApp(sess, nopStore{}, nopPrefs{}, logger), sess
}

func TestAppStartsOnLoginWithoutSession(t *testing.T) {
	a, _ := newApp(nil)
	a.Init()

	assert.Equal(t, ViewLogin, a.currentView)
	assert.Contains(t, a.View(), "Sign in")
}

func TestAppOpensTasksForRestoredSession(t *testing.T) {
	a, _ := newApp(&models.User{ID: "u1", Email: "ada@example.com"})
	a.Init()

	assert.Equal(t, ViewTasks, a.currentView)
	assert.Contains(t, a.View(), "ada@example.com")
}

func TestAppFollowsIdentity(t *testing.T) {
	a, _ := newApp(nil)
	a.Init()

	a.Update(views.IdentityMsg{User: &models.User{ID: "u1", Email: "ada@example.com"}})
	require.Equal(t, ViewTasks, a.currentView)
	first := a.taskList

	// the same user again keeps the screen
	a.Update(views.IdentityMsg{User: &models.User{ID: "u1", Email: "ada@example.com"}})
	assert.Same(t, first, a.taskList)

	a.Update(views.IdentityMsg{User: nil})
	assert.Equal(t, ViewLogin, a.currentView)
	assert.Nil(t, a.taskList)
}

func TestAppLogout(t *testing.T) {
	a, sess := newApp(&models.User{ID: "u1"})
	a.Init()

	_, cmd := a.Update(views.LogoutRequested{})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, sess.logouts)
}
