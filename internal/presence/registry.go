// Package presence tracks the live map of connected participants, keyed by
// connection id. The registry is the single owner of participant state; the
// hub reads it only through snapshots.
package presence

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"geochat/internal/models"
)

// Registry maps connection ids to participants. All methods are safe for
// concurrent use; mutations are atomic with respect to Snapshot.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]models.Participant),
	}
}

// UpsertOnReport creates the participant on its first position report,
// assigning a generated guest name, or updates position (and avatar, if
// supplied) on subsequent reports. Returns the resulting participant.
func (r *Registry) UpsertOnReport(id string, lat, lng float64, avatar string) models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		p = models.Participant{
			ID:   id,
			Name: generateGuestName(),
		}
	}
	p.Lat = lat
	p.Lng = lng
	if avatar != "" {
		p.Avatar = avatar
	}
	r.participants[id] = p
	return p
}

// UpdatePosition moves a known participant. Returns false if id is unknown,
// which callers treat as a silent no-op (movement before the first report).
func (r *Registry) UpdatePosition(id string, lat, lng float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.Lat = lat
	p.Lng = lng
	r.participants[id] = p
	return true
}

// UpdateProfile applies only the supplied fields. When the name actually
// changes it returns the previous name and true, so the caller can announce
// the rename; otherwise it returns "", false.
func (r *Registry) UpdateProfile(id string, name, avatar *string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return "", false
	}

	renamed := false
	oldName := p.Name
	if name != nil && *name != "" && *name != p.Name {
		p.Name = *name
		renamed = true
	}
	if avatar != nil {
		p.Avatar = *avatar
	}
	r.participants[id] = p

	if !renamed {
		return "", false
	}
	return oldName, true
}

// Remove deletes and returns the participant, or false if absent.
func (r *Registry) Remove(id string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if ok {
		delete(r.participants, id)
	}
	return p, ok
}

// Get returns the participant by connection id.
func (r *Registry) Get(id string) (models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	return p, ok
}

// Snapshot returns a point-in-time copy of the registry, safe to hand to
// broadcast without observing later mutation.
func (r *Registry) Snapshot() map[string]models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]models.Participant, len(r.participants))
	for id, p := range r.participants {
		snapshot[id] = p
	}
	return snapshot
}

// Guest names are not checked for uniqueness; collisions between
// simultaneously connected guests are accepted.
func generateGuestName() string {
	return fmt.Sprintf("Guest-%d", rand.IntN(1000))
}
