package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	feedChannel = "ledger:feed"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type feedMessage struct {
	SenderInstanceID string          `json:"sender_instance_id"`
	Payload          json.RawMessage `json:"payload"`
}

type connection struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans committed ledger events out to every connected operator console.
// Redis Pub/Sub bridges instances; without Redis the hub degrades to
// single-instance local broadcast.
type Hub struct {
	connections map[*connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *connection
	unregister chan *connection

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
	upgrader   websocket.Upgrader
}

func NewHub(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[*connection]bool),
		redis:       redisClient,
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  instanceID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, feedChannel)
	}
	return h
}

// Run starts the hub (call in goroutine).
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			log.Debug().Msg("ledger feed client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.send)
			}
			h.mu.Unlock()
			log.Debug().Msg("ledger feed client disconnected")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var fm feedMessage
			if err := json.Unmarshal([]byte(msg.Payload), &fm); err != nil {
				continue
			}
			// Local clients already got this payload directly.
			if fm.SenderInstanceID == h.instanceID {
				continue
			}
			h.broadcastLocal([]byte(fm.Payload))
		}
	}
}

// Publish sends the payload to every client on every instance.
func (h *Hub) Publish(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal ledger feed event")
		return
	}

	h.broadcastLocal(data)

	if h.redis == nil {
		return
	}
	fm := feedMessage{SenderInstanceID: h.instanceID, Payload: data}
	payload, err := json.Marshal(fm)
	if err != nil {
		return
	}
	if err := h.redis.Publish(h.ctx, feedChannel, payload).Err(); err != nil {
		log.Error().Err(err).Str("channel", feedChannel).Msg("redis publish failed")
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections {
		select {
		case conn.send <- data:
		default:
			// Slow consumer, drop the event.
		}
	}
}

// ServeWS upgrades the request and attaches the client to the feed. The feed
// is read-only for clients; inbound frames are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &connection{conn: ws, send: make(chan []byte, 256)}
	h.register <- conn

	go h.reader(conn)
	go h.writer(conn)
}

func (h *Hub) reader(c *connection) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("ledger feed read error")
			}
			return
		}
	}
}

func (h *Hub) writer(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown stops the hub and the Redis subscription.
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
