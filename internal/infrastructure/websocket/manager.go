package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"b2bmarket/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Client is one push connection. ChannelKey is the profile id of a shop
// or supplier, or the user id of an administrator.
type Client struct {
	ChannelKey string
	Conn       *websocket.Conn
	Send       chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(channelKey string, conn *websocket.Conn) *Client {
	return &Client{
		ChannelKey: channelKey,
		Conn:       conn,
		Send:       make(chan []byte, sendBuffer),
	}
}

// enqueue never blocks and never sends on a closed channel.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Manager tracks open push connections. A channel may have several
// connections, e.g. two staff members of the same shop.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.ChannelKey] == nil {
					m.clients[client.ChannelKey] = make(map[*Client]struct{})
				}
				m.clients[client.ChannelKey][client] = struct{}{}
				m.mutex.Unlock()
				logger.Debug("Push client registered on channel %s", client.ChannelKey)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Debug("Push client unregistered from channel %s", client.ChannelKey)

			case <-ctx.Done():
				close(m.done)
				m.closeAll()
				return
			}
		}
	}()
}

// Attach registers the client unless the manager has stopped.
func (m *Manager) Attach(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[client.ChannelKey]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	client.close()
	if len(conns) == 0 {
		delete(m.clients, client.ChannelKey)
	}
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, conns := range m.clients {
		for client := range conns {
			client.close()
		}
		delete(m.clients, key)
	}
}

// SendToChannel queues message on every connection of the channel and
// returns how many accepted it. Connections whose buffer is full are
// dropped rather than blocking the sender.
func (m *Manager) SendToChannel(channelKey string, message []byte) int {
	m.mutex.RLock()
	var slow []*Client
	delivered := 0
	for client := range m.clients[channelKey] {
		if client.enqueue(message) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range slow {
		logger.Warn("Dropping slow push client on channel %s", channelKey)
		m.remove(client)
	}
	return delivered
}

func (m *Manager) ConnectionCount(channelKey string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[channelKey])
}

// ReadPump drains the connection so control frames are processed. The
// channel is push-only; inbound frames are answered by HandleInbound.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Push connection on channel %s closed: %v", c.ChannelKey, err)
			}
			return
		}

		if reply := HandleInbound(message); reply != nil {
			c.enqueue(reply)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Push write on channel %s failed: %v", c.ChannelKey, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
