package service

import (
	"fmt"

	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/ws"
)

type GameService struct {
	gameManager *GameManager
}

func NewGameService(gameManager *GameManager) *GameService {
	return &GameService{
		gameManager: gameManager,
	}
}

func (gs *GameService) CreateGame(playerID string, opts CreateOptions) (string, model.GameState, error) {
	session, err := gs.gameManager.CreateGame(playerID, opts)
	if err != nil {
		return "", model.GameState{}, fmt.Errorf("failed to create game: %w", err)
	}
	return session.ID, session.state(), nil
}

func (gs *GameService) GetGameState(gameID string) (model.GameState, error) {
	return gs.gameManager.GetGameState(gameID)
}

// LegalMoves lists the destination squares of the piece on square.
func (gs *GameService) LegalMoves(gameID, playerID, square string) ([]string, error) {
	from, err := model.ParseSquare(square)
	if err != nil {
		return nil, err
	}
	targets, err := gs.gameManager.LegalMoves(gameID, playerID, from)
	if err != nil {
		return nil, err
	}
	squares := make([]string, 0, len(targets))
	for _, t := range targets {
		squares = append(squares, t.Square())
	}
	return squares, nil
}

func (gs *GameService) HandleMove(gameID string, playerID string, move ws.MovePayload) (model.GameState, error) {
	from, err := model.ParseSquare(move.From)
	if err != nil {
		return model.GameState{}, err
	}
	to, err := model.ParseSquare(move.To)
	if err != nil {
		return model.GameState{}, err
	}
	var promotion model.PieceType
	if move.Promotion != "" {
		if promotion, err = parsePromotion(move.Promotion); err != nil {
			return model.GameState{}, err
		}
	}
	return gs.gameManager.MakeMove(gameID, playerID, from, to, promotion)
}

func (gs *GameService) HandlePromotion(gameID string, playerID string, promote ws.PromotePayload) (model.GameState, error) {
	at, err := model.ParseSquare(promote.Square)
	if err != nil {
		return model.GameState{}, err
	}
	pt, err := parsePromotion(promote.Piece)
	if err != nil {
		return model.GameState{}, err
	}
	return gs.gameManager.Promote(gameID, playerID, at, pt)
}

// parsePromotion rejects anything a pawn cannot become before the move is
// applied.
func parsePromotion(s string) (model.PieceType, error) {
	pt, _ := model.ParsePieceType(s)
	switch pt {
	case model.Queen, model.Rook, model.Bishop, model.Knight:
		return pt, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidPromotion, s)
}

func (gs *GameService) RegisterConnection(gameID string, playerID string, conn Conn) error {
	return gs.gameManager.RegisterConnection(gameID, playerID, conn)
}

func (gs *GameService) UnregisterConnection(gameID string, playerID string, conn Conn) {
	gs.gameManager.UnregisterConnection(gameID, playerID, conn)
}
