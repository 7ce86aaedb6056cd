package chat

import "sync"

// Message is a single accepted chat message, immutable once recorded
type Message struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Registry owns room membership and the per-room message log. A room exists
// only while it has at least one member, and its log shares that lifetime:
// both are created on the first join and deleted together when the last
// member leaves. All operations on a room are serialized behind one lock so
// a send racing a leave resolves to a total order.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
	logs  map[string][]Message
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
		logs:  make(map[string][]Message),
	}
}

// Join adds label to the room's member set, creating the room and an empty
// log on the first join. Joining a room the label is already in is a no-op.
func (r *Registry) Join(room, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
		r.logs[room] = []Message{}
	}
	members[label] = struct{}{}
}

// Leave removes label from the room. When the member set empties, the room
// and its message log are deleted in the same step; a later re-join starts
// with a fresh log.
func (r *Registry) Leave(room, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := members[label]; !ok {
		return ErrNotMember
	}
	delete(members, label)
	if len(members) == 0 {
		delete(r.rooms, room)
		delete(r.logs, room)
	}
	return nil
}

// Members returns a snapshot of the room's current member set. Callers get a
// copy, never a live view.
func (r *Registry) Members(room string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil, ErrRoomNotFound
	}
	users := make([]string, 0, len(members))
	for label := range members {
		users = append(users, label)
	}
	return users, nil
}

// Contains reports whether label is currently a member of room
func (r *Registry) Contains(room, label string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	_, ok = members[label]
	return ok
}

// Append records a message in arrival order. The membership check and the
// append happen under the same lock, so a sender whose leave has already been
// applied can never slip a message into the log.
func (r *Registry) Append(room, label, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := members[label]; !ok {
		return ErrNotMember
	}
	r.logs[room] = append(r.logs[room], Message{Label: label, Text: text})
	return nil
}

// Messages returns the ordered log recorded since the room's current
// creation. Rooms recreated after deletion start with an empty log.
func (r *Registry) Messages(room string) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.logs[room]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := make([]Message, len(log))
	copy(out, log)
	return out, nil
}
