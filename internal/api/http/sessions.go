package apihttp

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// sessionRegistry tracks the sessions currently streaming bytes to
// clients. Snapshots feed the sessions endpoint and the websocket hub.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionState
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*domain.SessionState)}
}

func (reg *sessionRegistry) add(state domain.SessionState) {
	reg.mu.Lock()
	copied := state
	reg.sessions[state.ID] = &copied
	reg.mu.Unlock()
}

func (reg *sessionRegistry) remove(id string) (domain.SessionState, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	state, ok := reg.sessions[id]
	if !ok {
		return domain.SessionState{}, false
	}
	delete(reg.sessions, id)
	return *state, true
}

// addBytes bumps the byte counter for a session and returns the updated
// snapshot.
func (reg *sessionRegistry) addBytes(id string, n int64) (domain.SessionState, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	state, ok := reg.sessions[id]
	if !ok {
		return domain.SessionState{}, false
	}
	state.BytesSent += n
	state.UpdatedAt = time.Now().UTC()
	return *state, true
}

func (reg *sessionRegistry) list() []domain.SessionState {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]domain.SessionState, 0, len(reg.sessions))
	for _, state := range reg.sessions {
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (reg *sessionRegistry) count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.list())
}
