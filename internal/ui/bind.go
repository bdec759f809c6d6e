package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/store"
	"github.com/tgienger/stmc/internal/ui/views"
)

// Sender delivers messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// SnapshotSource is a store that reports its changes
type SnapshotSource interface {
	Subscribe(fn func(store.Snapshot)) (cancel func())
}

// IdentitySource is a session that reports sign-in and sign-out
type IdentitySource interface {
	Subscribe(fn func(*models.User)) (cancel func())
}

// Bind forwards store snapshots and identity changes to p. Subscribers only
// record the latest value, so a change made inside Update never waits on
// the program; a single goroutine delivers what is pending. Intermediate
// values may be skipped, and a snapshot older than one already seen is
// dropped.
func Bind(p Sender, snapshots SnapshotSource, identity IdentitySource) (unbind func()) {
	f := &forwarder{wake: make(chan struct{}, 1), done: make(chan struct{})}

	cancelSnap := snapshots.Subscribe(f.putSnapshot)
	cancelIdent := identity.Subscribe(func(u *models.User) {
		var cp *models.User
		if u != nil {
			c := *u
			cp = &c
		}
		f.putIdentity(views.IdentityMsg{User: cp})
	})

	go f.run(p)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelSnap()
			cancelIdent()
			close(f.done)
		})
	}
}

type forwarder struct {
	mu       sync.Mutex
	identity tea.Msg
	snapshot tea.Msg
	seq      uint64 // highest snapshot seen
	wake     chan struct{}
	done     chan struct{}
}

func (f *forwarder) putIdentity(msg views.IdentityMsg) {
	f.mu.Lock()
	f.identity = msg
	f.mu.Unlock()
	f.signal()
}

func (f *forwarder) putSnapshot(s store.Snapshot) {
	f.mu.Lock()
	if s.Seq < f.seq {
		f.mu.Unlock()
		return
	}
	f.seq = s.Seq
	f.snapshot = views.SnapshotMsg{Snapshot: s}
	f.mu.Unlock()
	f.signal()
}

func (f *forwarder) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// take empties both slots. Identity goes first so a view switch happens
// before the snapshot that belongs to it.
func (f *forwarder) take() []tea.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tea.Msg
	if f.identity != nil {
		out = append(out, f.identity)
		f.identity = nil
	}
	if f.snapshot != nil {
		out = append(out, f.snapshot)
		f.snapshot = nil
	}
	return out
}

func (f *forwarder) run(p Sender) {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
			for _, msg := range f.take() {
				p.Send(msg)
			}
		}
	}
}
