package inmemory

import (
	"sync"

	"github.com/watchparty/server/internal/repository/connection"
	"github.com/watchparty/server/pkg/wsconn"
)

// repo tracks live websocket connections and their per-room groups. The room
// group is the broadcast topic: publishing to a room means writing to every
// conn registered under its id. Handles here are owned by this process and
// never persisted.
type repo struct {
	mu       sync.RWMutex
	connList map[*wsconn.Conn]string
	idList   map[string]*wsconn.Conn
	roomList map[string]string
	groups   map[string]map[string]struct{}
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*wsconn.Conn]string),
		idList:   make(map[string]*wsconn.Conn),
		roomList: make(map[string]string),
		groups:   make(map[string]map[string]struct{}),
	}
}

func (r *repo) Add(conn *wsconn.Conn, connId, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[connId] != nil {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = connId
	r.idList[connId] = conn
	r.roomList[connId] = roomId

	group, ok := r.groups[roomId]
	if !ok {
		group = make(map[string]struct{})
		r.groups[roomId] = group
	}
	group[connId] = struct{}{}

	return nil
}

func (r *repo) removeLocked(conn *wsconn.Conn, connId string) {
	delete(r.connList, conn)
	delete(r.idList, connId)

	roomId := r.roomList[connId]
	delete(r.roomList, connId)
	if group, ok := r.groups[roomId]; ok {
		delete(group, connId)
		if len(group) == 0 {
			delete(r.groups, roomId)
		}
	}
}

func (r *repo) RemoveByConn(conn *wsconn.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}
	r.removeLocked(conn, connId)

	return connId, nil
}

func (r *repo) RemoveByConnId(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[connId]
	if !ok {
		return connection.ErrNotFound
	}
	r.removeLocked(conn, connId)

	return nil
}

func (r *repo) GetConn(connId string) (*wsconn.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetConnId(conn *wsconn.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return connId, nil
}

// RoomConns returns the current members of a room's broadcast group.
func (r *repo) RoomConns(roomId string) []*wsconn.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group := r.groups[roomId]
	conns := make([]*wsconn.Conn, 0, len(group))
	for connId := range group {
		if conn, ok := r.idList[connId]; ok {
			conns = append(conns, conn)
		}
	}

	return conns
}
