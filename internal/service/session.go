package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/ws"
)

// Conn is the part of a websocket connection a session writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// The connections for a specific game
type GameConnections struct {
	connections map[string]Conn // playerID -> connection
	mu          sync.Mutex
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]Conn),
	}
}

// Session wraps one engine instance. The engine is single-threaded, so every
// call into it goes through mu.
type Session struct {
	ID         string
	Owner      string
	AutoPlay   bool
	HumanColor model.Color

	mu          sync.Mutex
	game        *model.Game
	connections *GameConnections
	archived    bool
}

func newSession(id, owner string, game *model.Game, autoPlay bool, human model.Color) *Session {
	return &Session{
		ID:          id,
		Owner:       owner,
		AutoPlay:    autoPlay,
		HumanColor:  human,
		game:        game,
		connections: NewGameConnections(),
	}
}

func (s *Session) state() model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

func (s *Session) registerConnection(playerID string, conn Conn) error {
	s.connections.mu.Lock()
	if _, exists := s.connections.connections[playerID]; exists {
		// keep the healthy connection, reject the new one
		s.connections.mu.Unlock()
		conn.Close()
		return fmt.Errorf("player %s already connected", playerID)
	}
	s.connections.connections[playerID] = conn
	s.connections.mu.Unlock()
	log.Printf("registered connection for player %s in game %s", playerID, s.ID)

	s.broadcastState(s.state())
	return nil
}

func (s *Session) unregisterConnection(playerID string, conn Conn) {
	s.connections.mu.Lock()
	defer s.connections.mu.Unlock()

	// only drop the entry if it is still this connection
	if current, exists := s.connections.connections[playerID]; exists && current == conn {
		delete(s.connections.connections, playerID)
		log.Printf("unregistered connection for player %s in game %s", playerID, s.ID)
	}
}

func (s *Session) broadcastState(state model.GameState) {
	jsonGameState, err := json.Marshal(state)
	if err != nil {
		log.Printf("failed to marshal state of game %s: %v", s.ID, err)
		return
	}
	msg := ws.Message{Type: ws.MessageTypeGameState, Payload: jsonGameState}

	s.connections.mu.Lock()
	defer s.connections.mu.Unlock()
	for playerID, conn := range s.connections.connections {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("failed to send state to player %s: %v", playerID, err)
			delete(s.connections.connections, playerID)
		}
	}
}
