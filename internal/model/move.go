package model

// SecondaryMove is an auxiliary relocation bundled with a primary move.
// A nil To removes the piece on From without replacing it.
type SecondaryMove struct {
	From Position  `json:"from"`
	To   *Position `json:"to"`
}

// CandidateMove is a destination produced by a piece's move generator,
// before or after legality filtering.
type CandidateMove struct {
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Secondary *SecondaryMove `json:"secondary,omitempty"`
}

func (m CandidateMove) Position() Position {
	return Position{X: m.X, Y: m.Y}
}

// Ply is one entry of the append-only move history.
type Ply struct {
	From          Position       `json:"from"`
	To            Position       `json:"to"`
	Color         Color          `json:"color"`
	Type          PieceType      `json:"type"`
	CapturedPiece *Piece         `json:"capturedPiece"`
	Secondary     *SecondaryMove `json:"secondary"`
	Promotion     PieceType      `json:"promotion"`
	Notation      string         `json:"notation"`
}

type SimpleMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

// MoveChooser picks the next move for the side to move.
type MoveChooser interface {
	ChooseMove(g *Game) (SimpleMove, error)
}

// MoveHooks carries the callbacks the presentation layer reacts to.
type MoveHooks struct {
	// OnPromotion fires when a pawn reaches the far rank. It may call
	// Game.Promote before returning.
	OnPromotion func(pawn *Piece, at Position)
	// OnTerminal fires when the side to move is checkmated or stalemated.
	OnTerminal func(outcome Outcome)
	// AutoPlay asks the game's MoveChooser for an immediate reply.
	AutoPlay bool
}

type Outcome string

const (
	OutcomeNone  Outcome = ""
	OutcomeWhite Outcome = "W"
	OutcomeBlack Outcome = "B"
	OutcomeDraw  Outcome = "D"
)

func winner(c Color) Outcome {
	if c == White {
		return OutcomeWhite
	}
	return OutcomeBlack
}

func (o Outcome) Terminal() bool {
	return o != OutcomeNone
}
