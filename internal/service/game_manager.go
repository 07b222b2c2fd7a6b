// service/game_manager.go
package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/RSG-Group/Chess/internal/archive"
	"github.com/RSG-Group/Chess/internal/model"
	"github.com/google/uuid"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
	ErrNotGameOwner = errors.New("not a player in this game")
)

// Recorder receives finished games.
type Recorder interface {
	Add(record archive.GameRecord)
}

type GameManager struct {
	games      map[string]*Session
	newChooser func() model.MoveChooser
	recorder   Recorder
	mu         sync.RWMutex
}

// NewGameManager builds a manager. newChooser creates the automated opponent
// for each game that asks for one; recorder may be nil.
func NewGameManager(newChooser func() model.MoveChooser, recorder Recorder) *GameManager {
	return &GameManager{
		games:      make(map[string]*Session),
		newChooser: newChooser,
		recorder:   recorder,
	}
}

type CreateOptions struct {
	AutoPlay   bool
	HumanColor model.Color
	FEN        string
}

func (gm *GameManager) CreateGame(playerID string, opts CreateOptions) (*Session, error) {
	game := model.NewStandardGame()
	if opts.FEN != "" {
		parsed, err := model.ParseFEN(opts.FEN)
		if err != nil {
			return nil, err
		}
		game = parsed
	}
	human := opts.HumanColor
	if human == "" {
		human = model.White
	}
	if opts.AutoPlay && gm.newChooser != nil {
		game.SetChooser(gm.newChooser())
	}

	gameID := uuid.New().String()
	session := newSession(gameID, playerID, game, opts.AutoPlay && gm.newChooser != nil, human)

	// the automated side may be the one to move first
	replied := false
	if session.AutoPlay && game.SideToMove() != human {
		if _, err := game.Reply(model.MoveHooks{}); err != nil {
			return nil, err
		}
		replied = true
	}

	gm.mu.Lock()
	if _, exists := gm.games[gameID]; exists {
		gm.mu.Unlock()
		return nil, ErrGameExists
	}
	gm.games[gameID] = session
	gm.mu.Unlock()
	log.Printf("created game %s for player %s (autoplay=%v)", gameID, playerID, session.AutoPlay)

	if replied {
		gm.afterMove(session, session.state())
	}
	return session, nil
}

func (gm *GameManager) GetSession(gameID string) (*Session, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	session, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return session, nil
}

func (gm *GameManager) ownedSession(gameID, playerID string) (*Session, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	if session.Owner != playerID {
		return nil, ErrNotGameOwner
	}
	return session, nil
}

func (gm *GameManager) GetGameState(gameID string) (model.GameState, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return session.state(), nil
}

func (gm *GameManager) LegalMoves(gameID, playerID string, from model.Position) ([]model.Position, error) {
	session, err := gm.ownedSession(gameID, playerID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	piece, moves, err := session.game.Select(from)
	if err != nil {
		return nil, err
	}
	if session.AutoPlay && piece.Color != session.HumanColor {
		return nil, model.ErrNotYourTurn
	}
	targets := make([]model.Position, 0, len(moves))
	for _, m := range moves {
		targets = append(targets, m.Position())
	}
	return targets, nil
}

// MakeMove applies a move for the session owner. A non-empty promotion is
// applied as soon as the pawn reaches the far rank; otherwise the game waits
// for Promote.
func (gm *GameManager) MakeMove(gameID, playerID string, from, to model.Position, promotion model.PieceType) (model.GameState, error) {
	session, err := gm.ownedSession(gameID, playerID)
	if err != nil {
		return model.GameState{}, err
	}

	session.mu.Lock()
	game := session.game
	piece, _, err := game.Select(from)
	if err == nil && session.AutoPlay && piece.Color != session.HumanColor {
		err = model.ErrNotYourTurn
	}
	if err != nil {
		session.mu.Unlock()
		return model.GameState{}, err
	}
	var promoteErr error
	hooks := model.MoveHooks{
		AutoPlay: session.AutoPlay,
		OnTerminal: func(outcome model.Outcome) {
			log.Printf("game %s finished: %s", gameID, outcome)
		},
	}
	if promotion != "" {
		hooks.OnPromotion = func(pawn *model.Piece, at model.Position) {
			if pawn.Color != piece.Color {
				return
			}
			_, promoteErr = game.Promote(at, pawn.Color, promotion)
		}
	}
	_, err = game.AttemptMove(piece, to, hooks)
	state := game.Snapshot()
	session.mu.Unlock()

	if err != nil && !errors.Is(err, model.ErrReplyFailed) {
		return model.GameState{}, err
	}
	gm.afterMove(session, state)
	if err != nil {
		return state, err
	}
	if promoteErr != nil {
		log.Printf("game %s: promotion left pending: %v", gameID, promoteErr)
	}
	return state, nil
}

func (gm *GameManager) Promote(gameID, playerID string, at model.Position, pt model.PieceType) (model.GameState, error) {
	session, err := gm.ownedSession(gameID, playerID)
	if err != nil {
		return model.GameState{}, err
	}

	session.mu.Lock()
	game := session.game
	pending := game.PendingPromotion()
	if pending == nil || *pending != at {
		session.mu.Unlock()
		return model.GameState{}, model.ErrNoPromotion
	}
	pawn := game.PieceAt(at)
	_, err = game.Promote(at, pawn.Color, pt)
	state := game.Snapshot()
	session.mu.Unlock()

	if err != nil && !errors.Is(err, model.ErrReplyFailed) {
		return model.GameState{}, err
	}
	gm.afterMove(session, state)
	return state, err
}

// afterMove pushes the new state to connected clients and archives the game
// once it is over.
func (gm *GameManager) afterMove(session *Session, state model.GameState) {
	session.broadcastState(state)
	if !state.Outcome.Terminal() || gm.recorder == nil {
		return
	}
	session.mu.Lock()
	if session.archived {
		session.mu.Unlock()
		return
	}
	session.archived = true
	session.mu.Unlock()
	gm.recorder.Add(newGameRecord(session.ID, state))
}

func newGameRecord(gameID string, state model.GameState) archive.GameRecord {
	termination := "checkmate"
	if state.Outcome == model.OutcomeDraw {
		termination = "stalemate"
	}
	moves := make([]string, 0, len(state.MoveHistory))
	for _, ply := range state.MoveHistory {
		move := ply.From.Square() + ply.To.Square()
		if ply.Promotion != "" {
			move += ply.Promotion.Letter()
		}
		moves = append(moves, move)
	}
	return archive.GameRecord{
		GameID:      gameID,
		Result:      string(state.Outcome),
		Termination: termination,
		MoveCount:   int32(len(state.MoveHistory)),
		FinalFEN:    state.FEN,
		FENHistory:  state.FENHistory,
		Moves:       moves,
		FinishedAt:  time.Now().UnixMilli(),
	}
}

func (gm *GameManager) RegisterConnection(gameID string, playerID string, conn Conn) error {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return err
	}
	return session.registerConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID string, playerID string, conn Conn) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return
	}
	session.unregisterConnection(playerID, conn)
}
