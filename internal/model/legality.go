package model

import "fmt"

// filterLegalMoves keeps the candidates that do not leave the piece's own
// king attacked, by trying each one on the board and rolling it back.
func (g *Game) filterLegalMoves(piece *Piece, moves []CandidateMove) []CandidateMove {
	legalMoves := []CandidateMove{}
	for _, move := range moves {
		attacked := false
		g.simulate(piece, move, func() {
			attacked = g.Attacked(piece.Color)
		})
		if !attacked {
			legalMoves = append(legalMoves, move)
		}
	}
	return legalMoves
}

// WithSimulatedMove plays move for piece on the board, runs fn, and restores
// the board exactly. History and the FEN trail are not touched, but inside fn
// the side to move and the en-passant square follow the simulated move, so
// nested simulations see the position a real game would.
func (g *Game) WithSimulatedMove(piece *Piece, move CandidateMove, fn func()) {
	g.simulate(piece, move, fn)
}

func (g *Game) simulate(piece *Piece, move CandidateMove, fn func()) {
	from := piece.Position()
	to := move.Position()

	var secondary *Piece
	var secondaryFrom Position
	var secondaryTo *Position
	if move.Secondary != nil {
		if sp := g.board.At(move.Secondary.From); sp != nil && sp != piece {
			secondary = sp
			secondaryFrom = move.Secondary.From
			secondaryTo = move.Secondary.To
			g.board.relocate(secondary, &secondaryFrom, secondaryTo)
		}
	}

	captured := g.board.At(to)
	if captured == piece {
		captured = nil
	}
	if captured != nil {
		g.board.relocate(captured, &to, nil)
	}
	g.board.relocate(piece, &from, &to)
	g.simulated = append(g.simulated, Ply{From: from, To: to, Color: piece.Color, Type: piece.Type})

	// restore in reverse order even if fn panics
	defer func() {
		g.simulated = g.simulated[:len(g.simulated)-1]
		g.board.relocate(piece, &to, &from)
		if captured != nil {
			g.board.relocate(captured, nil, &to)
		}
		if secondary != nil {
			g.board.relocate(secondary, secondaryTo, &secondaryFrom)
		}
	}()

	fn()
}

// Attacked reports whether any opposing piece's raw candidates reach the
// square of color's king.
func (g *Game) Attacked(color Color) bool {
	king := g.board.King(color)
	if king == nil {
		panic(fmt.Errorf("%w: no %s king on the board", ErrInvariantViolation, color))
	}
	return g.squareAttacked(king.Position(), color.Opponent())
}

func (g *Game) squareAttacked(pos Position, by Color) bool {
	for _, piece := range g.board.Pieces(by) {
		for _, move := range piece.ValidMoves(false) {
			if move.X == pos.X && move.Y == pos.Y {
				return true
			}
		}
	}
	return false
}

// Terminal evaluates the side about to move: OutcomeNone while it has a legal
// move, the opponent's win when it is mated, OutcomeDraw on stalemate.
func (g *Game) Terminal(color Color) Outcome {
	if g.hasLegalMoves(color) {
		return OutcomeNone
	}
	if g.Attacked(color) {
		return winner(color.Opponent())
	}
	return OutcomeDraw
}

func (g *Game) hasLegalMoves(color Color) bool {
	for _, piece := range g.board.Pieces(color) {
		if len(piece.ValidMoves(true)) > 0 {
			return true
		}
	}
	return false
}

// LegalMoves lists every strict move of color as from/to pairs.
func (g *Game) LegalMoves(color Color) []SimpleMove {
	legalMoves := []SimpleMove{}
	for _, piece := range g.board.Pieces(color) {
		from := piece.Position()
		for _, move := range piece.ValidMoves(true) {
			legalMoves = append(legalMoves, SimpleMove{From: from, To: move.Position()})
		}
	}
	return legalMoves
}

type castleSide struct {
	rookX, transitX, destX int
	between                []int
	letter                 byte
}

var (
	kingSide  = castleSide{rookX: 7, transitX: 5, destX: 6, between: []int{5, 6}, letter: 'k'}
	queenSide = castleSide{rookX: 0, transitX: 3, destX: 2, between: []int{1, 2, 3}, letter: 'q'}
)

// castleMoves returns the castling candidates of king. The destination square
// is checked by the legality filter; here the king must not start in check or
// cross an attacked square.
func (g *Game) castleMoves(king *Piece) []CandidateMove {
	moves := []CandidateMove{}
	rank := king.Color.homeRank()
	if king.X != 4 || king.Y != rank {
		return moves
	}
	checked := false
	inCheck := false
	for _, side := range []castleSide{kingSide, queenSide} {
		if !g.castlingRight(king.Color, side) {
			continue
		}
		empty := true
		for _, x := range side.between {
			if g.board[rank][x] != nil {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		if !checked {
			inCheck = g.Attacked(king.Color)
			checked = true
		}
		if inCheck {
			return moves
		}
		transitAttacked := false
		g.simulate(king, CandidateMove{X: side.transitX, Y: rank}, func() {
			transitAttacked = g.Attacked(king.Color)
		})
		if transitAttacked {
			continue
		}
		rookTo := Position{X: side.transitX, Y: rank}
		moves = append(moves, CandidateMove{
			X: side.destX,
			Y: rank,
			Secondary: &SecondaryMove{
				From: Position{X: side.rookX, Y: rank},
				To:   &rookTo,
			},
		})
	}
	return moves
}

// castlingRight reports whether color may still castle on side: the start
// position granted it, king and rook stand on their home squares, and neither
// square has been the origin or destination of any ply.
func (g *Game) castlingRight(color Color, side castleSide) bool {
	letter := side.letter
	if color == White {
		letter -= 'a' - 'A'
	}
	if !g.start.hasCastling(letter) {
		return false
	}
	rank := color.homeRank()
	kingHome := Position{X: 4, Y: rank}
	rookHome := Position{X: side.rookX, Y: rank}
	king := g.board.At(kingHome)
	rook := g.board.At(rookHome)
	if king == nil || king.Type != King || king.Color != color {
		return false
	}
	if rook == nil || rook.Type != Rook || rook.Color != color {
		return false
	}
	for _, ply := range g.history {
		if ply.From == kingHome || ply.To == kingHome || ply.From == rookHome || ply.To == rookHome {
			return false
		}
	}
	return true
}
