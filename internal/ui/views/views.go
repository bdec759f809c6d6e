// Package views holds the bubbletea models for each screen. Views never
// touch the network directly: task operations go through a TaskStore and
// identity operations through an Authenticator, both run as tea.Cmds.
package views

import (
	"context"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/store"
)

// TaskStore is the part of store.Store the task screen drives
type TaskStore interface {
	Refresh(ctx context.Context) error
	Create(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, id string) error
	ApplyFilter(f models.FilterSet)
	ClearFilters()
	ApplySort(key models.SortKey)
	Task(id string) (models.Task, bool)
	Snapshot() store.Snapshot
}

// Preferences is the local settings and category cache. db.DB implements it.
type Preferences interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	ListCategories() ([]string, error)
	AddCategory(name string) (string, error)
}

// Authenticator signs a user in or up. auth.Session implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, email, password string) (models.User, error)
}

// SnapshotMsg carries a store change into the program
type SnapshotMsg struct {
	Snapshot store.Snapshot
}

// IdentityMsg reports a sign-in, sign-out or account switch. User is nil
// after sign-out.
type IdentityMsg struct {
	User *models.User
}

// LogoutRequested asks the app to end the session
type LogoutRequested struct{}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
