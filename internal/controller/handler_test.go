package controller

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchparty/server/internal/domain"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialWS(t *testing.T, serverURL, roomId string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/ws?roomId=" + roomId
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWSRejectsMalformedRoomId(t *testing.T) {
	server, _ := newTestServer(t)

	for _, roomId := range []string{"", "bad%20id", "no-dashes"} {
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?roomId=" + roomId
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestWSJoinFlow(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dialWS(t, server.URL, "test")

	// joining yields the join announcement and the room snapshot
	msg := readMessage(t, conn)
	require.Equal(t, "chatMessage", msg.Type)
	var chatMsg domain.ChatMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &chatMsg))
	assert.Equal(t, domain.MessageTypeJoin, chatMsg.Type)

	msg = readMessage(t, conn)
	require.Equal(t, "update", msg.Type)
	var roomState domain.Room
	require.NoError(t, json.Unmarshal(msg.Payload, &roomState))
	assert.Equal(t, "test", roomState.Id)
	require.Len(t, roomState.Users, 1)
	assert.True(t, roomState.TargetState.Paused)
}

func TestWSRoomIdIsLowercased(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dialWS(t, server.URL, "TeSt")

	readMessage(t, conn) // join chat message
	msg := readMessage(t, conn)
	var roomState domain.Room
	require.NoError(t, json.Unmarshal(msg.Payload, &roomState))
	assert.Equal(t, "test", roomState.Id)
}

func TestWSPlaybackAndChat(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dialWS(t, server.URL, "test")
	readMessage(t, conn) // join chat message
	readMessage(t, conn) // initial snapshot

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "setPaused", "payload": false}))
	msg := readMessage(t, conn)
	require.Equal(t, "update", msg.Type)
	var roomState domain.Room
	require.NoError(t, json.Unmarshal(msg.Payload, &roomState))
	assert.False(t, roomState.TargetState.Paused)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "sendChatMessage", "payload": "hello"}))
	msg = readMessage(t, conn)
	require.Equal(t, "chatMessage", msg.Type)
	var chatMsg domain.ChatMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &chatMsg))
	assert.Equal(t, "hello", chatMsg.Message)
	assert.Equal(t, domain.MessageTypeMessage, chatMsg.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "requestChatHistory"}))
	msg = readMessage(t, conn)
	require.Equal(t, "chatHistory", msg.Type)
	var history []domain.ChatMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[1].Message)
}

func TestWSFetch(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dialWS(t, server.URL, "test")
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "fetch"}))
	msg := readMessage(t, conn)
	require.Equal(t, "update", msg.Type)
	var roomState domain.Room
	require.NoError(t, json.Unmarshal(msg.Payload, &roomState))
	assert.Equal(t, "test", roomState.Id)
	assert.NotZero(t, roomState.ServerTime)
}

// Two members mutating the room at once makes every broadcast fan out to the
// same conns from two serve loops; each frame must still arrive intact.
func TestWSConcurrentMutationFanOut(t *testing.T) {
	server, _ := newTestServer(t)

	conn1 := dialWS(t, server.URL, "test")
	readMessage(t, conn1) // own join message
	readMessage(t, conn1) // initial snapshot

	conn2 := dialWS(t, server.URL, "test")
	readMessage(t, conn2)
	readMessage(t, conn2)
	readMessage(t, conn1) // second join fans out to the first member too
	readMessage(t, conn1)

	const mutations = 50
	conns := []*websocket.Conn{conn1, conn2}

	var writers sync.WaitGroup
	for _, conn := range conns {
		writers.Add(1)
		go func(conn *websocket.Conn) {
			defer writers.Done()
			for i := 0; i < mutations; i++ {
				if err := conn.WriteJSON(map[string]any{"type": "setPaused", "payload": i%2 == 0}); err != nil {
					return
				}
			}
		}(conn)
	}

	// every mutation is broadcast to both members
	var readers sync.WaitGroup
	for _, conn := range conns {
		readers.Add(1)
		go func(conn *websocket.Conn) {
			defer readers.Done()
			if !assert.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second))) {
				return
			}
			for i := 0; i < len(conns)*mutations; i++ {
				var msg wsMessage
				if !assert.NoError(t, conn.ReadJSON(&msg)) {
					return
				}
				assert.Equal(t, "update", msg.Type)
			}
		}(conn)
	}

	writers.Wait()
	readers.Wait()
}

func TestWSUnknownMessageType(t *testing.T) {
	server, _ := newTestServer(t)

	conn := dialWS(t, server.URL, "test")
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "doTheImpossible"}))
	var errMsg map[string]string
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, "unknown message type", errMsg["error"])

	// the connection survives an unknown type
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "fetch"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "update", msg.Type)
}
