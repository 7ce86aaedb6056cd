package handlers

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"

	"github.com/ridepool/ridepool-api/chat"
)

const chatNamespace = "/chatroom"

// chatBroadcaster adapts the socket.io server to the gateway's broadcaster
type chatBroadcaster struct {
	server *socketio.Server
}

func (b chatBroadcaster) BroadcastToRoom(room, event string, args ...interface{}) {
	b.server.BroadcastToRoom(chatNamespace, room, event, args...)
}

// InitializeChat builds the Socket.IO server for the chatroom namespace and
// routes its events through the chat gateway
func InitializeChat(verifier *chat.TokenVerifier, registry *chat.Registry) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})

	gw := chat.NewGateway(verifier, registry, chatBroadcaster{server: server})

	server.OnConnect(chatNamespace, func(s socketio.Conn) error {
		s.SetContext("")
		return gw.Connect(s, connCredential(s))
	})

	server.OnEvent(chatNamespace, "enter", func(s socketio.Conn, payload []string) {
		if len(payload) != 2 {
			s.Emit("error", chat.ErrorEvent{Message: "enter expects a label and a room"})
			return
		}
		gw.Enter(s, payload[0], payload[1])
	})

	server.OnEvent(chatNamespace, "send", func(s socketio.Conn, payload chat.SendPayload) {
		gw.Send(s, payload)
	})

	server.OnEvent(chatNamespace, "leave", func(s socketio.Conn, payload []string) {
		if len(payload) != 2 {
			s.Emit("error", chat.ErrorEvent{Message: "leave expects a label and a room"})
			return
		}
		gw.Leave(s, payload[0], payload[1])
	})

	server.OnEvent(chatNamespace, "getUserList", func(s socketio.Conn, room string) {
		gw.UserList(s, room)
	})

	server.OnEvent(chatNamespace, "getMessageLog", func(s socketio.Conn, room string) {
		gw.MessageLog(s, room)
	})

	server.OnError(chatNamespace, func(s socketio.Conn, e error) {
		zap.S().Errorw("chat transport error", "error", e)
	})

	server.OnDisconnect(chatNamespace, func(s socketio.Conn, reason string) {
		gw.Disconnect(s, reason)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("Socket.IO server error: %v", err)
		}
	}()

	return server
}

// connCredential pulls the bearer credential from the handshake. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted as a fallback.
func connCredential(s socketio.Conn) string {
	if h := s.RemoteHeader().Get("Authorization"); h != "" {
		return h
	}
	if u := s.URL(); u.RawQuery != "" {
		return u.Query().Get("token")
	}
	return ""
}
