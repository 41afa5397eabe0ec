package hub

import (
	"sync"

	"airline/pkg/broker"
	"airline/pkg/envelope"
	"airline/pkg/logger"

	"github.com/gofiber/contrib/websocket"
)

const service = "flights"

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type clientConn struct {
	conn     Conn
	username string
	role     string
	mu       sync.Mutex
	log      *logger.Logger
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		cc.log.Debug("send failed", logger.String("username", cc.username), logger.Error(err))
	}
}

// Hub relays flight events to connected travel agents.
type Hub struct {
	mu      sync.RWMutex
	clients map[Conn]*clientConn
	log     *logger.Logger
}

func New(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[Conn]*clientConn),
		log:     log.Named("hub"),
	}
}

// Follow forwards every flight-created envelope published on channel.
func (h *Hub) Follow(b *broker.Broker, channel string) {
	b.On(envelope.ActionFlightCreated, h.Broadcast)
	b.Subscribe(channel)
}

// HandleClientConn blocks until the client disconnects.
func (h *Hub) HandleClientConn(c Conn, username, role string) {
	cc := &clientConn{conn: c, username: username, role: role, log: h.log}

	h.mu.Lock()
	h.clients[c] = cc
	h.mu.Unlock()

	h.log.Info("client connected",
		logger.String("username", username),
		logger.String("role", role),
		logger.Int("total", h.ClientCount()),
	)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
		h.log.Info("client disconnected",
			logger.String("username", username),
			logger.Int("total", h.ClientCount()),
		)
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		env, err := envelope.Unmarshal(raw)
		if err != nil {
			reply := envelope.New("error", service)
			reply.Error = &envelope.ErrorPayload{Code: 400, Message: "invalid JSON"}
			h.reply(cc, reply)
			continue
		}
		env.Username = username

		switch env.Action {
		case "ping":
			pong := envelope.New("pong", service)
			pong.ReplyTo = env.ID
			h.reply(cc, pong)
		default:
			h.reply(cc, envelope.NewError(env, 404, "unknown action: "+env.Action))
		}
	}
}

func (h *Hub) reply(cc *clientConn, env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}
	cc.send(data)
}

// Broadcast writes env to every connected client.
func (h *Hub) Broadcast(env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		h.log.Warn("broadcast marshal failed", logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cc := range h.clients {
		cc.send(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
