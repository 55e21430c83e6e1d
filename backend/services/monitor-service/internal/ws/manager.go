package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/docstore"
)

// Event is the frame pushed to dashboard clients.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Data any    `json:"data"`
}

// Manager tracks dashboard connections and fans out status changes.
type Manager struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	last         []byte
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewManager builds connection manager.
func NewManager(pingInterval time.Duration, logger *zap.Logger) *Manager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		connections:  make(map[string]*Connection),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers new connection and sends it the latest snapshot.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
	if m.last != nil {
		conn.Send(m.last)
	}
}

// Remove removes connection.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Broadcast sends an event to every connection.
func (m *Manager) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("failed to encode event", zap.String("path", event.Path), zap.Error(err))
		return
	}

	m.mu.Lock()
	m.last = payload
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Send(payload)
	}
}

// Start follows path in the document store and broadcasts every change until
// ctx is cancelled, then closes all connections.
func (m *Manager) Start(ctx context.Context, docs docstore.Store, path string) error {
	unsubscribe, err := docs.OnValue(ctx, path, func(value any) {
		m.Broadcast(Event{Type: "status", Path: path, Data: value})
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	<-ctx.Done()

	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
	return nil
}
