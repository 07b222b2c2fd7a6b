package service

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/RSG-Group/Chess/internal/archive"
	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/ws"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []ws.Message
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, v.(ws.Message))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lastFEN(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatal("no messages received")
	}
	msg := c.messages[len(c.messages)-1]
	if msg.Type != ws.MessageTypeGameState {
		t.Fatalf("expected %s message, got %s", ws.MessageTypeGameState, msg.Type)
	}
	var state struct {
		FEN string `json:"fen"`
	}
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state.FEN
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []archive.GameRecord
}

func (r *fakeRecorder) Add(record archive.GameRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

// firstMove always plays the first legal move it is offered.
type firstMove struct{}

func (firstMove) ChooseMove(g *model.Game) (model.SimpleMove, error) {
	moves := g.LegalMoves(g.SideToMove())
	if len(moves) == 0 {
		return model.SimpleMove{}, errors.New("no moves")
	}
	return moves[0], nil
}

func newFirstMove() model.MoveChooser { return firstMove{} }

func pos(t *testing.T, s string) model.Position {
	t.Helper()
	p, err := model.ParseSquare(s)
	if err != nil {
		t.Fatalf("parse square %q: %v", s, err)
	}
	return p
}

func mustMove(t *testing.T, gm *GameManager, gameID, playerID, move string) model.GameState {
	t.Helper()
	state, err := gm.MakeMove(gameID, playerID, pos(t, move[:2]), pos(t, move[2:4]), "")
	if err != nil {
		t.Fatalf("move %s: %v", move, err)
	}
	return state
}

func TestGameLookupAndOwnership(t *testing.T) {
	gm := NewGameManager(nil, nil)
	session, err := gm.CreateGame("alice", CreateOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := gm.GetGameState("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	state, err := gm.GetGameState(session.ID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.ToMove != model.White || len(state.MoveHistory) != 0 {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if _, err := gm.MakeMove(session.ID, "mallory", pos(t, "e2"), pos(t, "e4"), ""); !errors.Is(err, ErrNotGameOwner) {
		t.Fatalf("expected ErrNotGameOwner, got %v", err)
	}
	if _, err := gm.LegalMoves(session.ID, "mallory", pos(t, "e2")); !errors.Is(err, ErrNotGameOwner) {
		t.Fatalf("expected ErrNotGameOwner, got %v", err)
	}
}

func TestCreateGameRejectsBadFEN(t *testing.T) {
	gm := NewGameManager(nil, nil)
	if _, err := gm.CreateGame("alice", CreateOptions{FEN: "not a fen"}); !errors.Is(err, model.ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestMoveIsBroadcast(t *testing.T) {
	gm := NewGameManager(nil, nil)
	session, _ := gm.CreateGame("alice", CreateOptions{})

	conn := &fakeConn{}
	if err := gm.RegisterConnection(session.ID, "alice", conn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if fen := conn.lastFEN(t); fen != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -" {
		t.Fatalf("unexpected FEN on register: %q", fen)
	}

	mustMove(t, gm, session.ID, "alice", "e2e4")
	if fen := conn.lastFEN(t); fen != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3" {
		t.Fatalf("unexpected FEN after move: %q", fen)
	}

	second := &fakeConn{}
	if err := gm.RegisterConnection(session.ID, "alice", second); err == nil {
		t.Fatal("expected duplicate connection to be rejected")
	}
	if !second.closed {
		t.Fatal("rejected connection was not closed")
	}

	gm.UnregisterConnection(session.ID, "alice", second)
	mustMove(t, gm, session.ID, "alice", "e7e5")
	if n := len(conn.messages); n != 3 {
		t.Fatalf("expected 3 messages on the original connection, got %d", n)
	}

	gm.UnregisterConnection(session.ID, "alice", conn)
	mustMove(t, gm, session.ID, "alice", "g1f3")
	if n := len(conn.messages); n != 3 {
		t.Fatalf("unregistered connection still receives state: %d messages", n)
	}
}

func TestIllegalMoveIsRejected(t *testing.T) {
	gm := NewGameManager(nil, nil)
	session, _ := gm.CreateGame("alice", CreateOptions{})

	_, err := gm.MakeMove(session.ID, "alice", pos(t, "e2"), pos(t, "e5"), "")
	if !errors.Is(err, model.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if _, err := gm.MakeMove(session.ID, "alice", pos(t, "e7"), pos(t, "e5"), ""); !errors.Is(err, model.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	state, _ := gm.GetGameState(session.ID)
	if len(state.MoveHistory) != 0 {
		t.Fatalf("rejected moves were recorded: %+v", state.MoveHistory)
	}
}

func TestAutoPlayReplies(t *testing.T) {
	gm := NewGameManager(newFirstMove, nil)
	session, err := gm.CreateGame("alice", CreateOptions{AutoPlay: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	state := mustMove(t, gm, session.ID, "alice", "e2e4")
	if len(state.MoveHistory) != 2 {
		t.Fatalf("expected a reply, history has %d plies", len(state.MoveHistory))
	}
	if state.ToMove != model.White {
		t.Fatalf("expected white to move after the reply, got %s", state.ToMove)
	}
	if len(state.FENHistory) != 2 {
		t.Fatalf("expected 2 FEN entries, got %d", len(state.FENHistory))
	}

	// the human cannot move the automated side's pieces
	if _, err := gm.LegalMoves(session.ID, "alice", pos(t, "b8")); !errors.Is(err, model.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestAutoPlayMovesFirstForBlackHuman(t *testing.T) {
	gm := NewGameManager(newFirstMove, nil)
	session, err := gm.CreateGame("alice", CreateOptions{AutoPlay: true, HumanColor: model.Black})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	state := session.state()
	if len(state.MoveHistory) != 1 || state.ToMove != model.Black {
		t.Fatalf("expected white to have opened, got %d plies, %s to move", len(state.MoveHistory), state.ToMove)
	}
}

func TestFinishedGameIsArchivedOnce(t *testing.T) {
	rec := &fakeRecorder{}
	gm := NewGameManager(nil, rec)
	session, _ := gm.CreateGame("alice", CreateOptions{})

	var state model.GameState
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		state = mustMove(t, gm, session.ID, "alice", mv)
	}
	if state.Outcome != model.OutcomeBlack {
		t.Fatalf("expected black to win, got %q", state.Outcome)
	}
	if _, err := gm.MakeMove(session.ID, "alice", pos(t, "a2"), pos(t, "a3"), ""); !errors.Is(err, model.ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}

	if len(rec.records) != 1 {
		t.Fatalf("expected one archived record, got %d", len(rec.records))
	}
	got := rec.records[0]
	if got.GameID != session.ID || got.Result != "B" || got.Termination != "checkmate" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.MoveCount != 4 || strings.Join(got.Moves, " ") != "f2f3 e7e5 g2g4 d8h4" {
		t.Fatalf("unexpected moves: %d %v", got.MoveCount, got.Moves)
	}
	if got.FinalFEN != state.FEN || len(got.FENHistory) != 4 {
		t.Fatalf("unexpected FEN data: %q %v", got.FinalFEN, got.FENHistory)
	}
}

func TestPromotionWithMove(t *testing.T) {
	rec := &fakeRecorder{}
	gm := NewGameManager(nil, rec)
	session, err := gm.CreateGame("alice", CreateOptions{FEN: "k7/4P3/8/8/8/8/8/K7 w - -"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	state, err := gm.MakeMove(session.ID, "alice", pos(t, "e7"), pos(t, "e8"), model.Queen)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if state.PendingPromotion != nil {
		t.Fatalf("promotion still pending at %v", state.PendingPromotion)
	}
	if p := state.Board[0][4]; p == nil || p.Type != model.Queen || p.Color != model.White {
		t.Fatalf("expected a white queen on e8, got %+v", p)
	}
	if got := state.MoveHistory[0].Notation; got != "e8=Q+" {
		t.Fatalf("expected e8=Q+, got %q", got)
	}
	if !strings.HasPrefix(state.FENHistory[0], "k3Q3/") {
		t.Fatalf("FEN trail missed the promotion: %q", state.FENHistory[0])
	}
}

func TestDeferredPromotion(t *testing.T) {
	gm := NewGameManager(nil, nil)
	session, _ := gm.CreateGame("alice", CreateOptions{FEN: "k7/4P3/8/8/8/8/8/K7 w - -"})

	state := mustMove(t, gm, session.ID, "alice", "e7e8")
	if state.PendingPromotion == nil || *state.PendingPromotion != pos(t, "e8") {
		t.Fatalf("expected pending promotion on e8, got %v", state.PendingPromotion)
	}
	if _, err := gm.MakeMove(session.ID, "alice", pos(t, "a8"), pos(t, "b8"), ""); !errors.Is(err, model.ErrPromotionPending) {
		t.Fatalf("expected ErrPromotionPending, got %v", err)
	}
	if _, err := gm.Promote(session.ID, "alice", pos(t, "d8"), model.Knight); !errors.Is(err, model.ErrNoPromotion) {
		t.Fatalf("expected ErrNoPromotion, got %v", err)
	}

	state, err := gm.Promote(session.ID, "alice", pos(t, "e8"), model.Knight)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if state.PendingPromotion != nil {
		t.Fatal("promotion still pending")
	}
	if p := state.Board[0][4]; p == nil || p.Type != model.Knight {
		t.Fatalf("expected a knight on e8, got %+v", p)
	}
	if state.ToMove != model.Black {
		t.Fatalf("expected black to move, got %s", state.ToMove)
	}
}

func TestGameServiceParsesSquares(t *testing.T) {
	gs := NewGameService(NewGameManager(nil, nil))
	gameID, _, err := gs.CreateGame("alice", CreateOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	moves, err := gs.LegalMoves(gameID, "alice", "e2")
	if err != nil {
		t.Fatalf("legal moves: %v", err)
	}
	sort.Strings(moves)
	if strings.Join(moves, ",") != "e3,e4" {
		t.Fatalf("expected e3,e4, got %v", moves)
	}

	if _, err := gs.LegalMoves(gameID, "alice", "z9"); !errors.Is(err, model.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := gs.HandleMove(gameID, "alice", ws.MovePayload{From: "e2", To: "e4", Promotion: "king"}); !errors.Is(err, model.ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
	state, err := gs.HandleMove(gameID, "alice", ws.MovePayload{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if state.LastMove == nil || state.LastMove.To.Square() != "e4" {
		t.Fatalf("unexpected last move: %+v", state.LastMove)
	}
	if _, err := gs.HandlePromotion(gameID, "alice", ws.PromotePayload{Square: "e8", Piece: "queen"}); !errors.Is(err, model.ErrNoPromotion) {
		t.Fatalf("expected ErrNoPromotion, got %v", err)
	}
}
