package chat

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Conn is the slice of a realtime connection the gateway needs. Join and
// Leave manage the transport-level group the connection is subscribed to;
// Emit replies to the originating connection only.
type Conn interface {
	ID() string
	Emit(event string, args ...interface{})
	Join(room string)
	Leave(room string)
	Close() error
}

// Broadcaster delivers an event to every connection currently subscribed to
// a room's transport group
type Broadcaster interface {
	BroadcastToRoom(room, event string, args ...interface{})
}

// ErrorEvent is the payload of every error reply
type ErrorEvent struct {
	Message string `json:"message"`
}

// UserList carries a roster snapshot for a room
type UserList struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// MessageLog carries the full ordered log for a room
type MessageLog struct {
	Room string    `json:"room"`
	Logs []Message `json:"logs"`
}

// SendPayload is the inbound payload of a send event
type SendPayload struct {
	Room  string `json:"room"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// session tracks what the gateway needs to clean up after a connection: the
// identity bound at connect and every label it joined each room with. A
// connection may re-enter the same room under a second label, so each room
// holds a set.
type session struct {
	identity Identity
	rooms    map[string]map[string]struct{} // room id -> labels joined with
}

// Gateway is the per-connection control loop of the chat namespace. It
// demultiplexes inbound events, drives the registry, and fans results out
// through the broadcaster. It never touches the transport directly, so tests
// run against fakes and production runs against socket.io.
type Gateway struct {
	verifier *TokenVerifier
	registry *Registry
	server   Broadcaster

	mu       sync.Mutex
	sessions map[string]*session
}

// NewGateway wires the gateway to its collaborators
func NewGateway(verifier *TokenVerifier, registry *Registry, server Broadcaster) *Gateway {
	return &Gateway{
		verifier: verifier,
		registry: registry,
		server:   server,
		sessions: make(map[string]*session),
	}
}

// Connect verifies the presented credential and binds the resulting identity
// to the connection. On failure it emits a single error event, closes the
// connection, and returns the error so the transport drops the handshake --
// no further events from that connection are processed.
func (g *Gateway) Connect(c Conn, credential string) error {
	identity, err := g.verifier.Verify(credential)
	if err != nil {
		c.Emit("error", ErrorEvent{Message: "authentication failed: " + err.Error()})
		_ = c.Close()
		zap.S().Warnw("chat connection rejected", "id", c.ID(), "error", err)
		return err
	}

	g.mu.Lock()
	g.sessions[c.ID()] = &session{identity: identity, rooms: make(map[string]map[string]struct{})}
	g.mu.Unlock()

	zap.S().Infow("chat client connected", "id", c.ID(), "username", identity.Username)
	return nil
}

// Enter joins label to room, subscribes the connection to the room's
// transport group, and announces the join plus the updated roster to the
// room. Once a connection is authenticated, enter always succeeds.
func (g *Gateway) Enter(c Conn, label, room string) {
	if label == "" || room == "" {
		c.Emit("error", ErrorEvent{Message: "enter expects a label and a room"})
		return
	}
	sess, ok := g.session(c)
	if !ok {
		return
	}

	g.registry.Join(room, label)
	c.Join(room)

	g.mu.Lock()
	labels := sess.rooms[room]
	if labels == nil {
		labels = make(map[string]struct{})
		sess.rooms[room] = labels
	}
	labels[label] = struct{}{}
	g.mu.Unlock()

	users, err := g.registry.Members(room)
	if err != nil {
		// only possible if every member left between join and snapshot
		return
	}
	g.server.BroadcastToRoom(room, "joined", fmt.Sprintf("%s entered the room", label))
	g.server.BroadcastToRoom(room, "userList", UserList{Room: room, Users: users})
	zap.S().Debugw("chat enter", "room", room, "label", label, "id", c.ID())
}

// Send appends a message to the room's log and broadcasts it. Senders that
// are not current members are rejected without mutating anything.
func (g *Gateway) Send(c Conn, p SendPayload) {
	if p.Room == "" || p.Label == "" || p.Text == "" {
		c.Emit("error", ErrorEvent{Message: "send expects room, label and text"})
		return
	}
	if _, ok := g.session(c); !ok {
		return
	}

	if err := g.registry.Append(p.Room, p.Label, p.Text); err != nil {
		switch err {
		case ErrRoomNotFound:
			c.Emit("error", ErrorEvent{Message: fmt.Sprintf("cannot send message, room %q does not exist", p.Room)})
		case ErrNotMember:
			c.Emit("error", ErrorEvent{Message: fmt.Sprintf("cannot send message, user %q is not in room %q", p.Label, p.Room)})
		}
		return
	}
	g.server.BroadcastToRoom(p.Room, "message", Message{Label: p.Label, Text: p.Text})
}

// Leave removes label from the room, unsubscribes the connection from the
// transport group, and broadcasts the updated roster. Leaving as the last
// member tears the room down, log included.
func (g *Gateway) Leave(c Conn, label, room string) {
	if label == "" || room == "" {
		c.Emit("error", ErrorEvent{Message: "leave expects a label and a room"})
		return
	}
	sess, ok := g.session(c)
	if !ok {
		return
	}

	if err := g.registry.Leave(room, label); err != nil {
		switch err {
		case ErrRoomNotFound:
			c.Emit("error", ErrorEvent{Message: fmt.Sprintf("cannot leave, room %q does not exist", room)})
		case ErrNotMember:
			c.Emit("error", ErrorEvent{Message: fmt.Sprintf("cannot leave, user %q is not in room %q", label, room)})
		}
		return
	}
	g.mu.Lock()
	if labels, ok := sess.rooms[room]; ok {
		delete(labels, label)
		if len(labels) == 0 {
			delete(sess.rooms, room)
		}
	}
	// stay subscribed to the transport group while another of this
	// connection's labels is still in the room
	_, stillJoined := sess.rooms[room]
	g.mu.Unlock()
	if !stillJoined {
		c.Leave(room)
	}

	// no broadcast once the last member is gone; the room no longer exists
	if users, err := g.registry.Members(room); err == nil {
		g.server.BroadcastToRoom(room, "userList", UserList{Room: room, Users: users})
	}
	zap.S().Debugw("chat leave", "room", room, "label", label, "id", c.ID())
}

// UserList replies to the originating connection with the room's roster
func (g *Gateway) UserList(c Conn, room string) {
	if room == "" {
		c.Emit("error", ErrorEvent{Message: "getUserList expects a room"})
		return
	}
	users, err := g.registry.Members(room)
	if err != nil {
		c.Emit("error", ErrorEvent{Message: fmt.Sprintf("room %q does not exist", room)})
		return
	}
	c.Emit("userList", UserList{Room: room, Users: users})
}

// MessageLog replies to the originating connection with the room's full log
func (g *Gateway) MessageLog(c Conn, room string) {
	if room == "" {
		c.Emit("error", ErrorEvent{Message: "getMessageLog expects a room"})
		return
	}
	logs, err := g.registry.Messages(room)
	if err != nil {
		c.Emit("error", ErrorEvent{Message: fmt.Sprintf("room %q does not exist", room)})
		return
	}
	c.Emit("messageLog", MessageLog{Room: room, Logs: logs})
}

// Disconnect removes the session's label from every room it joined, exactly
// as an explicit leave would, so a dropped connection never strands
// membership entries.
func (g *Gateway) Disconnect(c Conn, reason string) {
	g.mu.Lock()
	sess := g.sessions[c.ID()]
	delete(g.sessions, c.ID())
	g.mu.Unlock()
	if sess == nil {
		return
	}

	for room, labels := range sess.rooms {
		for label := range labels {
			if err := g.registry.Leave(room, label); err != nil {
				continue
			}
		}
		if users, err := g.registry.Members(room); err == nil {
			g.server.BroadcastToRoom(room, "userList", UserList{Room: room, Users: users})
		}
	}
	zap.S().Infow("chat client disconnected", "id", c.ID(), "reason", reason)
}

// session looks up the connection's session. Events arriving on a connection
// that never authenticated get one error reply and are otherwise ignored.
func (g *Gateway) session(c Conn) (*session, bool) {
	g.mu.Lock()
	sess, ok := g.sessions[c.ID()]
	g.mu.Unlock()
	if !ok {
		c.Emit("error", ErrorEvent{Message: "connection is not authenticated"})
	}
	return sess, ok
}
