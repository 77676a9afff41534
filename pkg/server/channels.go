package server

import (
	"sync"
)

// ChannelRegistry tracks channel membership. Channels are created
// implicitly on first join and deleted when their last member leaves,
// except the default channel, which always exists. Enumeration order
// is creation order, so List is deterministic within a process run.
type ChannelRegistry struct {
	mu          sync.RWMutex
	defaultName string
	order       []string                   // creation order of live channels
	members     map[string]map[string]bool // channel -> set of usernames
}

// NewChannelRegistry creates a registry with the default channel
// already present.
func NewChannelRegistry(defaultName string) *ChannelRegistry {
	r := &ChannelRegistry{
		defaultName: defaultName,
		members:     make(map[string]map[string]bool),
	}
	r.members[defaultName] = make(map[string]bool)
	r.order = append(r.order, defaultName)
	return r
}

// DefaultName returns the name of the default channel.
func (r *ChannelRegistry) DefaultName() string {
	return r.defaultName
}

// Create adds an empty channel if it does not exist yet. It reports
// whether a new channel was created. Used for channel preloading.
func (r *ChannelRegistry) Create(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(name)
}

func (r *ChannelRegistry) createLocked(name string) bool {
	if _, ok := r.members[name]; ok {
		return false
	}
	r.members[name] = make(map[string]bool)
	r.order = append(r.order, name)
	return true
}

// Join adds a username to a channel, creating the channel if absent.
// Joining a channel already joined is a no-op. It reports whether the
// channel was newly created.
func (r *ChannelRegistry) Join(channel, username string) (created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created = r.createLocked(channel)
	r.members[channel][username] = true
	return created
}

// Leave removes a username from a channel. removed is false when the
// channel does not exist or the username was not a member; deleted is
// true when the channel became empty and was dropped.
func (r *ChannelRegistry) Leave(channel, username string) (removed, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[channel]
	if !ok || !set[username] {
		return false, false
	}
	delete(set, username)
	return true, r.dropIfEmptyLocked(channel)
}

// RemoveEverywhere removes a username from every channel, applying the
// empty-channel deletion rule. It returns how many channels were
// deleted. Invoked on logout and on timeout through the one shared
// session-termination path.
func (r *ChannelRegistry) RemoveEverywhere(username string) (deleted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Walk the order slice rather than the map so deletions are applied
	// in a stable order.
	for _, name := range append([]string(nil), r.order...) {
		set := r.members[name]
		if !set[username] {
			continue
		}
		delete(set, username)
		if r.dropIfEmptyLocked(name) {
			deleted++
		}
	}
	return deleted
}

// dropIfEmptyLocked deletes a channel that has no members left, unless
// it is the default channel.
func (r *ChannelRegistry) dropIfEmptyLocked(channel string) bool {
	if channel == r.defaultName || len(r.members[channel]) > 0 {
		return false
	}
	delete(r.members, channel)
	for i, name := range r.order {
		if name == channel {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Members returns a snapshot of a channel's member set, or nil if the
// channel does not exist. An existing empty channel returns a non-nil
// empty slice.
func (r *ChannelRegistry) Members(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.members[channel]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(set))
	for name := range set {
		result = append(result, name)
	}
	return result
}

// Exists reports whether the channel is present.
func (r *ChannelRegistry) Exists(channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[channel]
	return ok
}

// List returns the live channel names in creation order.
func (r *ChannelRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of live channels.
func (r *ChannelRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
