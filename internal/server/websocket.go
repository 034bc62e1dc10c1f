package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// client is one live socket. roomID is only touched by the connection's
// dispatch goroutine; everything shared lives in the hub and registry.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	roomID string
}

// wsHub tracks live connections and their room groupings and fans events
// out to them. Sends are fire-and-forget: a consumer whose buffer is full
// gets its socket closed, which funnels it into the normal leave path.
type wsHub struct {
	mu    sync.Mutex
	conns map[string]*client
	rooms map[string]map[*client]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		conns: make(map[string]*client),
		rooms: make(map[string]map[*client]struct{}),
	}
}

func (h *wsHub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

func (h *wsHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.id]; !ok {
		return
	}
	delete(h.conns, c.id)
	if group := h.rooms[c.roomID]; group != nil {
		delete(group, c)
		if len(group) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	close(c.send)
	_ = c.conn.Close()
}

func (h *wsHub) joinRoom(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		group = make(map[*client]struct{})
		h.rooms[roomID] = group
	}
	group[c] = struct{}{}
}

func (h *wsHub) leaveRoom(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if group := h.rooms[roomID]; group != nil {
		delete(group, c)
		if len(group) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *wsHub) broadcast(roomID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[roomID] {
		h.enqueueLocked(c, data)
	}
}

func (h *wsHub) sendTo(connID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		h.enqueueLocked(c, data)
	}
}

func (h *wsHub) enqueueLocked(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		_ = c.conn.Close()
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{
		id:   newConnID(),
		conn: conn,
		send: make(chan []byte, s.cfg.ClientSendBuffer),
	}
	log.Printf("ws connected conn_id=%s remote=%s", c.id, r.RemoteAddr)
	s.hub.register(c)
	go c.writePump()
	s.hub.sendTo(c.id, connectedEvent{Type: eventConnected, ConnectionID: c.id})
	go s.readWS(c)
}

func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

func (s *Server) readWS(c *client) {
	defer func() {
		s.coordinator.Leave(c.id)
		s.hub.unregister(c)
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected conn_id=%s error=%v", c.id, err)
			return
		}
		s.dispatch(c, data)
	}
}

// dispatch routes one inbound frame by its type tag. Failures only ever
// answer the sending connection; room state stays untouched.
func (s *Server) dispatch(c *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.hub.sendTo(c.id, errorEvent{Type: eventError, Message: "malformed message"})
		return
	}

	var err error
	switch env.Type {
	case msgJoinRoom:
		err = s.handleJoinRoom(c, data)
	case msgUpdateRequiredCount:
		var msg updateRequiredCountMessage
		if err = decodeMessage(data, &msg); err == nil {
			err = s.coordinator.UpdateQuota(msg.RoomID, c.id, msg.RequiredCount)
		}
	case msgUpdatePlayerName:
		var msg updatePlayerNameMessage
		if err = decodeMessage(data, &msg); err == nil {
			var name string
			if name, err = validateName(msg.Name); err == nil {
				err = s.coordinator.UpdateName(msg.RoomID, c.id, msg.Index, name)
			}
		}
	case msgStartGame:
		var msg startGameMessage
		if err = decodeMessage(data, &msg); err == nil {
			err = s.coordinator.StartGame(msg.RoomID, c.id)
		}
	case msgCenterCard:
		var msg centerCardMessage
		if err = decodeMessage(data, &msg); err == nil {
			err = s.coordinator.PlayCard(msg.RoomID, c.id, msg.Card)
		}
	default:
		err = errors.New("unknown message type")
	}

	if err != nil {
		s.hub.sendTo(c.id, errorEvent{Type: eventError, Message: err.Error()})
	}
}

func (s *Server) handleJoinRoom(c *client, data []byte) error {
	var msg joinRoomMessage
	if err := decodeMessage(data, &msg); err != nil {
		return err
	}
	if msg.Name != "" {
		name, err := validateName(msg.Name)
		if err != nil {
			return err
		}
		msg.Name = name
	}
	if c.roomID != "" && c.roomID != msg.RoomID {
		return errors.New("connection already joined another room")
	}

	alreadyMember := c.roomID == msg.RoomID
	if !alreadyMember {
		s.hub.joinRoom(msg.RoomID, c)
	}
	if err := s.coordinator.Join(msg.RoomID, c.id, msg.Name); err != nil {
		if !alreadyMember {
			s.hub.leaveRoom(msg.RoomID, c)
		}
		if errors.Is(err, errRoomFull) {
			s.hub.sendTo(c.id, roomFullEvent{Type: eventRoomFull})
			return nil
		}
		return err
	}
	c.roomID = msg.RoomID
	return nil
}
