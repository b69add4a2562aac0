package gateway

import (
	"sort"
	"sync"
	"time"
)

type ConnectionInfo struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	RemoteAddr string    `json:"remote_addr"`
	StartedAt  time.Time `json:"started_at"`
	LastAudio  time.Time `json:"last_audio"`
}

// Registry tracks live controllers so the process can report on them and
// close them on shutdown.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Controller)}
}

func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// List returns a snapshot ordered by start time.
func (r *Registry) List() []ConnectionInfo {
	r.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(r.conns))
	for _, c := range r.conns {
		infos = append(infos, ConnectionInfo{
			ID:         c.ID(),
			State:      c.State().String(),
			RemoteAddr: c.RemoteAddr(),
			StartedAt:  c.StartedAt(),
			LastAudio:  c.LastAudio(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// CloseAll starts teardown on every registered connection. Controllers
// remove themselves once their Run returns.
func (r *Registry) CloseAll(reason string) int {
	r.mu.RLock()
	conns := make([]*Controller, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		c.Close(reason)
	}
	return len(conns)
}
