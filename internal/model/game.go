package model

import (
	"fmt"
	"strings"
)

// Game owns the board, the move history and the FEN trail. It is not safe
// for concurrent use; callers serialize access.
type Game struct {
	board      Board
	history    []Ply
	fenHistory []string
	start      startState
	chooser    MoveChooser
	outcome    Outcome

	pendingPromotion *Position
	deferredReply    *MoveHooks

	// simulated holds the plies played by simulate that are not yet rolled
	// back. They count for the side to move and the en-passant square.
	simulated []Ply
}

// startState describes the position before the first ply. History overrides
// it as soon as one move has been played.
type startState struct {
	toMove    Color
	castling  string
	enPassant *Position
}

func (s startState) hasCastling(letter byte) bool {
	return strings.IndexByte(s.castling, letter) >= 0
}

type GameState struct {
	Board            Board       `json:"board"`
	ToMove           Color       `json:"toMove"`
	MoveHistory      []Ply       `json:"moveHistory"`
	FEN              string      `json:"fen"`
	FENHistory       []string    `json:"fenHistory"`
	IsCheck          bool        `json:"isCheck"`
	Outcome          Outcome     `json:"outcome"`
	PendingPromotion *Position   `json:"promotionSquare"`
	LastMove         *SimpleMove `json:"lastMove"`
}

// NewGame returns an empty board with white to move.
func NewGame() *Game {
	return &Game{
		history:    make([]Ply, 0),
		fenHistory: make([]string, 0),
		start:      startState{toMove: White, castling: "KQkq"},
	}
}

// NewStandardGame returns a game with all 32 pieces on their initial squares.
func NewStandardGame() *Game {
	g := NewGame()
	backRank := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for x := 0; x < 8; x++ {
		g.mustPlace(Pawn, x, 6, White)
		g.mustPlace(Pawn, x, 1, Black)
		g.mustPlace(backRank[x], x, 7, White)
		g.mustPlace(backRank[x], x, 0, Black)
	}
	return g
}

func (g *Game) mustPlace(pt PieceType, x, y int, color Color) {
	if _, err := g.PlacePiece(pt, x, y, color); err != nil {
		panic(err)
	}
}

// SetChooser installs the collaborator used for automated replies.
func (g *Game) SetChooser(c MoveChooser) {
	g.chooser = c
}

// PlacePiece creates a piece and puts it on (x, y), replacing any occupant.
func (g *Game) PlacePiece(pt PieceType, x, y int, color Color) (*Piece, error) {
	pos := Position{X: x, Y: y}
	if !pos.InBounds() {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, x, y)
	}
	if _, ok := ParsePieceType(string(pt)); !ok {
		return nil, fmt.Errorf("unknown piece type %q", pt)
	}
	if color != White && color != Black {
		return nil, fmt.Errorf("unknown color %q", color)
	}
	piece := NewPiece(pt, x, y, color, g)
	g.board.relocate(piece, nil, &pos)
	return piece, nil
}

func (g *Game) Board() Board {
	return g.board
}

func (g *Game) PieceAt(pos Position) *Piece {
	return g.board.At(pos)
}

func (g *Game) History() []Ply {
	return append([]Ply(nil), g.history...)
}

func (g *Game) FENHistory() []string {
	return append([]string(nil), g.fenHistory...)
}

func (g *Game) Outcome() Outcome {
	return g.outcome
}

func (g *Game) PendingPromotion() *Position {
	if g.pendingPromotion == nil {
		return nil
	}
	pos := *g.pendingPromotion
	return &pos
}

// SideToMove is derived from history: the opposite of the last mover.
func (g *Game) SideToMove() Color {
	last, ok := g.lastPly()
	if !ok {
		return g.start.toMove
	}
	return last.Color.Opponent()
}

// lastPly is the most recent ply on the board, simulated ones included.
func (g *Game) lastPly() (Ply, bool) {
	if n := len(g.simulated); n > 0 {
		return g.simulated[n-1], true
	}
	if n := len(g.history); n > 0 {
		return g.history[n-1], true
	}
	return Ply{}, false
}

// CheckInvariants verifies every piece's coordinates against the grid.
func (g *Game) CheckInvariants() error {
	return g.board.checkInvariants()
}

// Snapshot is the export view of the game used by the API layer.
func (g *Game) Snapshot() GameState {
	side := g.SideToMove()
	state := GameState{
		Board:            g.board,
		ToMove:           side,
		MoveHistory:      g.History(),
		FEN:              g.FEN(),
		FENHistory:       g.FENHistory(),
		Outcome:          g.outcome,
		PendingPromotion: g.PendingPromotion(),
	}
	if g.board.King(side) != nil {
		state.IsCheck = g.Attacked(side)
	}
	if n := len(g.history); n > 0 {
		last := g.history[n-1]
		state.LastMove = &SimpleMove{From: last.From, To: last.To}
	}
	return state
}

// Select returns the piece on from together with its legal moves, provided
// it belongs to the side to move.
func (g *Game) Select(from Position) (*Piece, []CandidateMove, error) {
	if g.outcome.Terminal() {
		return nil, nil, ErrGameOver
	}
	if g.pendingPromotion != nil {
		return nil, nil, ErrPromotionPending
	}
	if !from.InBounds() {
		return nil, nil, fmt.Errorf("%w: %v", ErrOutOfBounds, from)
	}
	piece := g.board.At(from)
	if piece == nil {
		return nil, nil, ErrNoPiece
	}
	if piece.Color != g.SideToMove() {
		return nil, nil, ErrNotYourTurn
	}
	return piece, piece.ValidMoves(true), nil
}

// Move selects the piece on from and attempts to move it to to.
func (g *Game) Move(from, to Position, hooks MoveHooks) (Outcome, error) {
	piece, _, err := g.Select(from)
	if err != nil {
		return g.outcome, err
	}
	return g.AttemptMove(piece, to, hooks)
}

// AttemptMove applies a move of selected to to. selected must belong to the
// side to move. Moving a piece onto its own square is a no-op. A destination
// outside the strict legal set returns ErrIllegalMove and leaves board,
// history and FEN trail untouched.
func (g *Game) AttemptMove(selected *Piece, to Position, hooks MoveHooks) (Outcome, error) {
	if selected == nil || g.board.At(selected.Position()) != selected {
		return g.outcome, ErrNoPiece
	}
	if g.outcome.Terminal() {
		return g.outcome, ErrGameOver
	}
	if g.pendingPromotion != nil {
		return g.outcome, ErrPromotionPending
	}
	if selected.Color != g.SideToMove() {
		return g.outcome, ErrNotYourTurn
	}
	from := selected.Position()
	if to == from {
		return g.outcome, nil
	}

	var move *CandidateMove
	for _, vm := range selected.ValidMoves(true) {
		if vm.X == to.X && vm.Y == to.Y {
			vm := vm
			move = &vm
			break
		}
	}
	if move == nil {
		return g.outcome, fmt.Errorf("%w: %s %s to %s", ErrIllegalMove, selected.Type, from, to)
	}

	notation := g.getNotation(selected, *move)

	var captured *Piece
	if sec := move.Secondary; sec != nil {
		if sp := g.board.At(sec.From); sp != nil {
			if sec.To == nil {
				captured = sp
			}
			g.board.relocate(sp, &sec.From, sec.To)
		}
	}
	if occupant := g.board.At(to); occupant != nil {
		captured = occupant
	}
	g.board.relocate(selected, &from, &to)

	g.history = append(g.history, Ply{
		From:          from,
		To:            to,
		Color:         selected.Color,
		Type:          selected.Type,
		CapturedPiece: captured,
		Secondary:     move.Secondary,
		Notation:      notation,
	})

	if selected.Type == Pawn && to.Y == selected.Color.Opponent().homeRank() {
		promotion := to
		g.pendingPromotion = &promotion
		if hooks.OnPromotion != nil {
			hooks.OnPromotion(selected, to)
		}
	}

	g.settle(hooks.OnTerminal)
	g.fenHistory = append(g.fenHistory, g.FEN())

	if hooks.AutoPlay && g.chooser != nil && !g.outcome.Terminal() {
		reply := MoveHooks{OnPromotion: hooks.OnPromotion, OnTerminal: hooks.OnTerminal}
		if g.pendingPromotion != nil {
			g.deferredReply = &reply
			return g.outcome, nil
		}
		if err := g.playReply(reply); err != nil {
			return g.outcome, err
		}
	}
	return g.outcome, nil
}

// settle evaluates the side now to move and appends the check suffix to the
// last ply's notation.
func (g *Game) settle(onTerminal func(Outcome)) {
	last := &g.history[len(g.history)-1]
	last.Notation = strings.TrimRight(last.Notation, "+#")
	opponent := last.Color.Opponent()
	g.outcome = g.Terminal(opponent)
	switch {
	case g.outcome == winner(last.Color):
		last.Notation += "#"
	case g.Attacked(opponent):
		last.Notation += "+"
	}
	if g.outcome.Terminal() && onTerminal != nil {
		onTerminal(g.outcome)
	}
}

// playReply asks the chooser for the opponent's move and applies it in the
// same call stack. The reply never chains another reply, and its own pawn
// promotions default to a queen.
func (g *Game) playReply(hooks MoveHooks) error {
	choice, err := g.chooser.ChooseMove(g)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	hooks.AutoPlay = false
	hooks.OnPromotion = func(pawn *Piece, at Position) {
		g.Promote(at, pawn.Color, Queen)
	}
	if _, err := g.Move(choice.From, choice.To, hooks); err != nil {
		return fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	return nil
}

// Reply lets the chooser move for the side to move, e.g. when the automated
// side moves first.
func (g *Game) Reply(hooks MoveHooks) (Outcome, error) {
	switch {
	case g.chooser == nil:
		return g.outcome, fmt.Errorf("%w: no chooser", ErrReplyFailed)
	case g.outcome.Terminal():
		return g.outcome, ErrGameOver
	case g.pendingPromotion != nil:
		return g.outcome, ErrPromotionPending
	}
	err := g.playReply(hooks)
	return g.outcome, err
}

// Promote replaces the pawn waiting on at with a new piece of type pt.
func (g *Game) Promote(at Position, color Color, pt PieceType) (Outcome, error) {
	if g.pendingPromotion == nil || *g.pendingPromotion != at {
		return g.outcome, ErrNoPromotion
	}
	pawn := g.board.At(at)
	if pawn == nil || pawn.Type != Pawn || pawn.Color != color {
		return g.outcome, ErrNoPromotion
	}
	switch pt {
	case Queen, Rook, Bishop, Knight:
	default:
		return g.outcome, fmt.Errorf("%w: %q", ErrInvalidPromotion, pt)
	}

	piece := NewPiece(pt, at.X, at.Y, color, g)
	g.board.relocate(pawn, &at, nil)
	g.board.relocate(piece, nil, &at)
	g.pendingPromotion = nil
	last := &g.history[len(g.history)-1]
	last.Promotion = pt
	last.Notation = strings.TrimRight(last.Notation, "+#") + "=" + strings.ToUpper(pt.getPieceNotation())

	// Called from inside OnPromotion the move is still in flight and
	// AttemptMove settles it. Otherwise this ply's FEN is already recorded.
	if len(g.fenHistory) < len(g.history) {
		return g.outcome, nil
	}
	g.settle(nil)
	g.fenHistory[len(g.fenHistory)-1] = g.FEN()

	if reply := g.deferredReply; reply != nil {
		g.deferredReply = nil
		if !g.outcome.Terminal() {
			if err := g.playReply(*reply); err != nil {
				return g.outcome, err
			}
		}
	}
	return g.outcome, nil
}

func (g *Game) getNotation(piece *Piece, move CandidateMove) string {
	to := move.Position()
	if piece.Type == King && move.Secondary != nil {
		if move.X == kingSide.destX {
			return "O-O"
		}
		return "O-O-O"
	}
	prefix := ""
	if piece.Type != Pawn {
		prefix = strings.ToUpper(piece.Type.getPieceNotation())
	}
	capture := ""
	if g.board.At(to) != nil || (piece.Type == Pawn && move.Secondary != nil) {
		capture = "x"
		if piece.Type == Pawn {
			prefix = piece.Position().Square()[:1]
		}
	}
	return prefix + capture + to.Square()
}
