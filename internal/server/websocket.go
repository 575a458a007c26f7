package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"impostor/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait    = 5 * time.Second
	wsMaxReadBytes = 512
)

type wsClient struct {
	conn   *websocket.Conn
	viewer string
	mu     sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// wsHub groups connections by room code. Each client sees its own
// redacted view, so pushes are rendered per connection.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*wsClient]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*wsClient]struct{}),
	}
}

func (h *wsHub) Add(code string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		group = make(map[*wsClient]struct{})
		h.groups[code] = group
	}
	group[client] = struct{}{}
}

func (h *wsHub) Remove(code string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		return
	}
	if _, ok := group[client]; !ok {
		return
	}
	delete(group, client)
	_ = client.conn.Close()
	if len(group) == 0 {
		delete(h.groups, code)
	}
}

func (h *wsHub) Clients(code string) []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	clients := make([]*wsClient, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	return clients
}

type roomStateMessage struct {
	Type  string        `json:"type"`
	Event *game.Event   `json:"event,omitempty"`
	Room  game.RoomView `json:"room"`
}

func (s *Server) handleWebsocket(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	state, err := s.engine.GetRoomState(ctx, c.Param("key"))
	cancel()
	if err != nil {
		s.writeError(c, err)
		return
	}
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	client := &wsClient{conn: conn, viewer: currentUser(c)}
	code := state.Room.Code
	s.log.WithFields(logrus.Fields{
		"code":    code,
		"user_id": client.viewer,
		"remote":  c.Request.RemoteAddr,
	}).Info("ws connected")
	s.ws.Add(code, client)
	if err := s.sendState(client, *state, nil); err != nil {
		s.ws.Remove(code, client)
		return
	}
	go s.readWS(code, client)
}

// readWS drains the connection until the client goes away. Clients only
// listen; anything they send is discarded.
func (s *Server) readWS(code string, client *wsClient) {
	defer s.ws.Remove(code, client)
	client.conn.SetReadLimit(wsMaxReadBytes)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).WithField("code", code).Debug("ws read ended")
			}
			return
		}
	}
}

// pushRoomState loads the room once and sends every subscriber its own view.
func (s *Server) pushRoomState(ctx context.Context, event game.Event) error {
	if event.Code == "" {
		return nil
	}
	clients := s.ws.Clients(event.Code)
	if len(clients) == 0 {
		return nil
	}
	state, err := s.engine.GetRoomState(ctx, event.Code)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	for _, client := range clients {
		if err := s.sendState(client, *state, &event); err != nil {
			s.ws.Remove(event.Code, client)
		}
	}
	return nil
}

func (s *Server) sendState(client *wsClient, state game.State, event *game.Event) error {
	data, err := json.Marshal(roomStateMessage{
		Type:  "room_state",
		Event: event,
		Room:  game.ViewFor(state, client.viewer),
	})
	if err != nil {
		return err
	}
	return client.write(data)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}
