package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

type emittedEvent struct {
	event string
	args  []interface{}
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []emittedEvent
	rooms  map[string]bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, rooms: make(map[string]bool)}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Emit(event string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{event: event, args: args})
}

func (f *fakeConn) Join(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room] = true
}

func (f *fakeConn) Leave(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, room)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) emitted(event string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type roomEvent struct {
	room  string
	event string
	args  []interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []roomEvent
}

func (f *fakeBroadcaster) BroadcastToRoom(room, event string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, roomEvent{room: room, event: event, args: args})
}

func (f *fakeBroadcaster) byEvent(event string) []roomEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []roomEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

var testSecret = []byte("gateway-test-secret")

func testGateway() (*Gateway, *Registry, *fakeBroadcaster) {
	registry := NewRegistry()
	broadcaster := &fakeBroadcaster{}
	gw := NewGateway(NewTokenVerifier(testSecret), registry, broadcaster)
	return gw, registry, broadcaster
}

func testCredential(t *testing.T, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	assert.NoError(t, err)
	return signed
}

func connect(t *testing.T, gw *Gateway, id, username string) *fakeConn {
	t.Helper()
	c := newFakeConn(id)
	assert.NoError(t, gw.Connect(c, testCredential(t, username)))
	return c
}

func TestGatewayConnectRejectsBadCredential(t *testing.T) {
	gw, registry, _ := testGateway()

	c := newFakeConn("conn-1")
	err := gw.Connect(c, "garbage")
	assert.Equal(t, ErrInvalidCredential, err)

	// exactly one error event, then the connection is closed
	assert.Len(t, c.emitted("error"), 1)
	assert.True(t, c.closed)

	// a later enter on the rejected connection must never reach the registry
	gw.Enter(c, "alice", "room1")
	_, membersErr := registry.Members("room1")
	assert.Equal(t, ErrRoomNotFound, membersErr)
}

func TestGatewayConnectRejectsExpiredCredential(t *testing.T) {
	gw, _, _ := testGateway()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "alice",
		"exp":      time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	assert.NoError(t, err)

	c := newFakeConn("conn-1")
	assert.Equal(t, ErrExpiredCredential, gw.Connect(c, signed))
	assert.True(t, c.closed)
}

func TestGatewayEnterBroadcastsRoster(t *testing.T) {
	gw, registry, broadcaster := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Enter(c, "alice", "room1")

	assert.True(t, c.rooms["room1"])
	assert.True(t, registry.Contains("room1", "alice"))

	joined := broadcaster.byEvent("joined")
	assert.Len(t, joined, 1)
	assert.Equal(t, "room1", joined[0].room)

	rosters := broadcaster.byEvent("userList")
	assert.Len(t, rosters, 1)
	assert.Equal(t, UserList{Room: "room1", Users: []string{"alice"}}, rosters[0].args[0])
}

func TestGatewaySendRejectsNonMember(t *testing.T) {
	gw, registry, broadcaster := testGateway()

	alice := connect(t, gw, "conn-1", "alice")
	bob := connect(t, gw, "conn-2", "bob")
	gw.Enter(alice, "alice", "room1")

	gw.Send(bob, SendPayload{Room: "room1", Label: "bob", Text: "hi"})

	assert.Len(t, bob.emitted("error"), 1)
	assert.Empty(t, broadcaster.byEvent("message"))
	logs, err := registry.Messages("room1")
	assert.NoError(t, err)
	assert.Empty(t, logs)
}

func TestGatewaySendUnknownRoom(t *testing.T) {
	gw, _, broadcaster := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Send(c, SendPayload{Room: "nowhere", Label: "alice", Text: "hi"})

	errs := c.emitted("error")
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].args[0].(ErrorEvent).Message, "does not exist")
	assert.Empty(t, broadcaster.byEvent("message"))
}

func TestGatewayMalformedPayloads(t *testing.T) {
	gw, registry, _ := testGateway()
	c := connect(t, gw, "conn-1", "alice")

	gw.Enter(c, "", "")
	gw.Send(c, SendPayload{})
	gw.Leave(c, "alice", "")
	gw.UserList(c, "")
	gw.MessageLog(c, "")

	assert.Len(t, c.emitted("error"), 5)
	_, err := registry.Members("")
	assert.Equal(t, ErrRoomNotFound, err)
}

func TestGatewayLeaveLastMemberTearsDownRoom(t *testing.T) {
	gw, registry, broadcaster := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Enter(c, "alice", "room1")
	gw.Leave(c, "alice", "room1")

	assert.False(t, c.rooms["room1"])
	_, err := registry.Members("room1")
	assert.Equal(t, ErrRoomNotFound, err)

	// the only roster broadcast is the one from enter; teardown emits none
	assert.Len(t, broadcaster.byEvent("userList"), 1)
}

func TestGatewayLeaveErrorsLeaveStateUntouched(t *testing.T) {
	gw, registry, _ := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Enter(c, "alice", "room1")

	gw.Leave(c, "bob", "room1")
	errs := c.emitted("error")
	assert.Len(t, errs, 1)
	assert.True(t, registry.Contains("room1", "alice"))
	assert.True(t, c.rooms["room1"])

	gw.Leave(c, "alice", "nowhere")
	assert.Len(t, c.emitted("error"), 2)
}

func TestGatewayDisconnectLeavesEveryJoinedRoom(t *testing.T) {
	gw, registry, broadcaster := testGateway()

	alice := connect(t, gw, "conn-1", "alice")
	bob := connect(t, gw, "conn-2", "bob")
	gw.Enter(alice, "alice", "room1")
	gw.Enter(alice, "alice", "room2")
	gw.Enter(bob, "bob", "room1")

	gw.Disconnect(alice, "client namespace disconnect")

	users, err := registry.Members("room1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"bob"}, users)
	_, err = registry.Members("room2")
	assert.Equal(t, ErrRoomNotFound, err)

	// room1 got a fresh roster after the disconnect
	rosters := broadcaster.byEvent("userList")
	last := rosters[len(rosters)-1]
	assert.Equal(t, "room1", last.room)
	assert.Equal(t, UserList{Room: "room1", Users: []string{"bob"}}, last.args[0])

	// a second disconnect for the same connection is a no-op
	gw.Disconnect(alice, "transport close")
}

func TestGatewayDisconnectLeavesEveryLabelInARoom(t *testing.T) {
	gw, registry, _ := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Enter(c, "alice", "room1")
	gw.Enter(c, "alice2", "room1")
	assert.True(t, registry.Contains("room1", "alice"))
	assert.True(t, registry.Contains("room1", "alice2"))

	gw.Disconnect(c, "client namespace disconnect")

	assert.False(t, registry.Contains("room1", "alice"))
	assert.False(t, registry.Contains("room1", "alice2"))
	_, err := registry.Members("room1")
	assert.Equal(t, ErrRoomNotFound, err)
}

func TestGatewayLeaveKeepsSubscriptionWhileOtherLabelRemains(t *testing.T) {
	gw, registry, _ := testGateway()

	c := connect(t, gw, "conn-1", "alice")
	gw.Enter(c, "alice", "room1")
	gw.Enter(c, "alice2", "room1")

	gw.Leave(c, "alice", "room1")
	assert.False(t, registry.Contains("room1", "alice"))
	assert.True(t, registry.Contains("room1", "alice2"))
	assert.True(t, c.rooms["room1"])

	gw.Leave(c, "alice2", "room1")
	assert.False(t, c.rooms["room1"])
	_, err := registry.Members("room1")
	assert.Equal(t, ErrRoomNotFound, err)
}

func TestGatewayEndToEndScenario(t *testing.T) {
	gw, _, broadcaster := testGateway()

	a := connect(t, gw, "conn-a", "A")
	b := connect(t, gw, "conn-b", "B")

	gw.Enter(a, "A", "room1")
	gw.Enter(b, "B", "room1")
	gw.Send(a, SendPayload{Room: "room1", Label: "A", Text: "hi"})

	gw.UserList(a, "room1")
	rosters := a.emitted("userList")
	assert.Len(t, rosters, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, rosters[0].args[0].(UserList).Users)

	gw.MessageLog(a, "room1")
	logs := a.emitted("messageLog")
	assert.Len(t, logs, 1)
	assert.Equal(t, []Message{{Label: "A", Text: "hi"}}, logs[0].args[0].(MessageLog).Logs)

	messages := broadcaster.byEvent("message")
	assert.Len(t, messages, 1)
	assert.Equal(t, Message{Label: "A", Text: "hi"}, messages[0].args[0])

	gw.Leave(b, "B", "room1")
	gw.UserList(a, "room1")
	rosters = a.emitted("userList")
	assert.Equal(t, []string{"A"}, rosters[len(rosters)-1].args[0].(UserList).Users)

	gw.Leave(a, "A", "room1")
	gw.UserList(a, "room1")
	gw.MessageLog(a, "room1")
	errs := a.emitted("error")
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0].args[0].(ErrorEvent).Message, "does not exist")
	assert.Contains(t, errs[1].args[0].(ErrorEvent).Message, "does not exist")
}
