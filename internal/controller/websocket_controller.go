package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/service"
	"github.com/RSG-Group/Chess/internal/ws"
	"github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// lockedConn serializes writes: broadcasts from other requests and replies
// from the read loop share one connection.
type lockedConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (lc *lockedConn) WriteJSON(v interface{}) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.Conn.WriteJSON(v)
}

// HandleConnection is called when a new WebSocket connection is established
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID, _ := c.Locals("wsGameID").(string)
	playerID, _ := c.Locals("wsPlayerID").(string)
	conn := &lockedConn{Conn: c}

	// Register this connection with the game
	if err := wsc.gameService.RegisterConnection(gameID, playerID, conn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		c.Close()
		return
	}

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("read error: %v", err)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("parse error: %v", err)
			wsc.sendError(conn, "malformed message")
			continue
		}

		reply, err := wsc.handleMessage(gameID, playerID, msg)
		if err != nil {
			log.Printf("handle error: %v", err)
			wsc.sendError(conn, err.Error())
		}
		if reply != nil {
			if err := conn.WriteJSON(reply); err != nil {
				log.Printf("write error: %v", err)
				break
			}
		}
	}

	wsc.gameService.UnregisterConnection(gameID, playerID, conn)
}

// handleMessage dispatches one client message. State changes reach the client
// through the session broadcast; only direct answers are returned here.
func (wsc *WebSocketController) handleMessage(gameID, playerID string, msg ws.Message) (*ws.Message, error) {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move ws.MovePayload
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return nil, err
		}
		_, err := wsc.gameService.HandleMove(gameID, playerID, move)
		return nil, err

	case ws.MessageTypePromote:
		var promote ws.PromotePayload
		if err := json.Unmarshal(msg.Payload, &promote); err != nil {
			return nil, err
		}
		_, err := wsc.gameService.HandlePromotion(gameID, playerID, promote)
		return nil, err

	case ws.MessageTypeSelect:
		var sel ws.SelectPayload
		if err := json.Unmarshal(msg.Payload, &sel); err != nil {
			return nil, err
		}
		moves, err := wsc.gameService.LegalMoves(gameID, playerID, sel.Square)
		if err != nil {
			if errors.Is(err, model.ErrNoPiece) || errors.Is(err, model.ErrNotYourTurn) {
				// deselect: an empty list clears the highlights
				moves = []string{}
			} else {
				return nil, err
			}
		}
		reply, err := ws.NewMessage(ws.MessageTypeLegalMoves, ws.LegalMovesPayload{Square: sel.Square, Moves: moves})
		if err != nil {
			return nil, err
		}
		return &reply, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// Helper method to send error messages
func (wsc *WebSocketController) sendError(c service.Conn, errorMsg string) {
	msg, err := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Error: errorMsg})
	if err != nil {
		log.Printf("failed to build error message: %v", err)
		return
	}
	if err := c.WriteJSON(msg); err != nil {
		log.Printf("failed to send error: %v", err)
	}
}
