package views

import (
	"slices"
	"time"

	"Tgviews/storage"
)

// RetentionPolicy bounds the callbacks kept in a committed state. Zero values disable the limit.
type RetentionPolicy struct {
	MaxCallbacks int
	MaxAge       time.Duration
}

func (p RetentionPolicy) apply(state *storage.UserState, now time.Time) {
	if p.MaxAge > 0 {
		for id, callback := range state.Callbacks {
			if now.Sub(callback.CreatedAt) > p.MaxAge {
				delete(state.Callbacks, id)
			}
		}
	}
	if p.MaxCallbacks > 0 && len(state.Callbacks) > p.MaxCallbacks {
		callbacks := make([]*storage.Callback, 0, len(state.Callbacks))
		for _, callback := range state.Callbacks {
			callbacks = append(callbacks, callback)
		}
		// newest first
		slices.SortFunc(callbacks, func(a, b *storage.Callback) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
		for _, callback := range callbacks[p.MaxCallbacks:] {
			delete(state.Callbacks, callback.ID)
		}
	}
}

// StateManager holds the actual state a view reads and the next state it builds during one dispatch step
type StateManager struct {
	Actual *storage.UserState
	Next   *storage.UserState

	user      *storage.User
	retention RetentionPolicy
}

func NewStateManager(retention RetentionPolicy) *StateManager {
	return &StateManager{retention: retention}
}

// Begin takes the persisted state as actual and seeds a fresh next state that inherits pending deletions.
// With keep set the persisted state is carried over unchanged.
func (m *StateManager) Begin(user *storage.User, keep bool) {
	m.user = user
	m.Actual = user.State
	if keep {
		m.Next = user.State
		return
	}
	m.Next = storage.NewUserState()
	m.Next.MessagesToDelete = slices.Clone(user.State.MessagesToDelete)
}

// Commit makes the next state the persisted one
func (m *StateManager) Commit() {
	if m.user == nil || m.Next == nil {
		return
	}
	m.retention.apply(m.Next, time.Now().UTC())
	m.user.State = m.Next
}

// AddCallback makes the callback valid in both states, so a press resolves right after commit
func (m *StateManager) AddCallback(callback *storage.Callback) {
	m.Actual.Callbacks[callback.ID] = callback
	m.Next.Callbacks[callback.ID] = callback
}

// AddMessageToDelete schedules a message for deletion at the next keyboard render.
// Immediate deletion also schedules it in the actual state, so this dispatch issues it.
func (m *StateManager) AddMessageToDelete(chatID int64, messageID int, immediate bool) {
	m.Next.AddMessageToDelete(chatID, messageID)
	if immediate && m.Actual != m.Next {
		m.Actual.AddMessageToDelete(chatID, messageID)
	}
}

// takePendingDeletions empties the actual pending list and keeps in the next state only messages
// that were added during this dispatch
func (m *StateManager) takePendingDeletions() []storage.ChatMessage {
	pending := m.Actual.MessagesToDelete
	if len(pending) == 0 {
		return nil
	}
	issued := make(map[storage.ChatMessage]struct{}, len(pending))
	for _, msg := range pending {
		issued[msg] = struct{}{}
	}
	var rest []storage.ChatMessage
	for _, msg := range m.Next.MessagesToDelete {
		if _, ok := issued[msg]; !ok {
			rest = append(rest, msg)
		}
	}
	if rest == nil {
		rest = []storage.ChatMessage{}
	}
	m.Next.MessagesToDelete = rest
	m.Actual.MessagesToDelete = []storage.ChatMessage{}
	return pending
}
