package model

import "strings"

type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
	X     int       `json:"x"`
	Y     int       `json:"y"`

	game *Game
	gen  moveGenerator
}

// moveGenerator produces geometric candidates for one piece. strict is only
// consulted by the king, whose castling moves never attack a square and so
// are left out of the raw set used for attack detection.
type moveGenerator interface {
	candidates(p *Piece, strict bool) []CandidateMove
}

var (
	rookDirs   = []Position{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}
	bishopDirs = []Position{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
	queenDirs  = append(append([]Position{}, rookDirs...), bishopDirs...)
	knightDirs = []Position{{X: 2, Y: 1}, {X: 2, Y: -1}, {X: -2, Y: 1}, {X: -2, Y: -1}, {X: 1, Y: 2}, {X: 1, Y: -2}, {X: -1, Y: 2}, {X: -1, Y: -2}}
)

// NewPiece is the piece factory. The generator is resolved here, once.
func NewPiece(pt PieceType, x, y int, color Color, g *Game) *Piece {
	p := &Piece{Type: pt, Color: color, X: x, Y: y, game: g}
	switch pt {
	case Pawn:
		p.gen = pawnMoves{}
	case Knight:
		p.gen = stepMoves{dirs: knightDirs}
	case Bishop:
		p.gen = slideMoves{dirs: bishopDirs}
	case Rook:
		p.gen = slideMoves{dirs: rookDirs}
	case Queen:
		p.gen = slideMoves{dirs: queenDirs}
	case King:
		p.gen = kingMoves{}
	}
	return p
}

func (p *Piece) Position() Position {
	return Position{X: p.X, Y: p.Y}
}

// FEN returns the piece letter, uppercase for white.
func (p *Piece) FEN() string {
	letter := p.Type.getPieceNotation()
	if p.Color == White {
		return strings.ToUpper(letter)
	}
	return letter
}

// ValidMoves returns the raw geometric candidates, or with strict set only
// those that do not leave the piece's own king attacked.
func (p *Piece) ValidMoves(strict bool) []CandidateMove {
	if p.gen == nil {
		return nil
	}
	moves := p.gen.candidates(p, strict)
	if !strict {
		return moves
	}
	return p.game.filterLegalMoves(p, moves)
}

func (p *Piece) canLand(pos Position) bool {
	if !pos.InBounds() {
		return false
	}
	occupant := p.game.board.At(pos)
	return occupant == nil || occupant.Color != p.Color
}

type stepMoves struct {
	dirs []Position
}

func (s stepMoves) candidates(p *Piece, _ bool) []CandidateMove {
	moves := []CandidateMove{}
	for _, dir := range s.dirs {
		target := Position{X: p.X + dir.X, Y: p.Y + dir.Y}
		if p.canLand(target) {
			moves = append(moves, CandidateMove{X: target.X, Y: target.Y})
		}
	}
	return moves
}

type slideMoves struct {
	dirs []Position
}

func (s slideMoves) candidates(p *Piece, _ bool) []CandidateMove {
	moves := []CandidateMove{}
	board := &p.game.board
	for _, dir := range s.dirs {
		target := Position{X: p.X + dir.X, Y: p.Y + dir.Y}
		for target.InBounds() {
			occupant := board.At(target)
			if occupant == nil {
				moves = append(moves, CandidateMove{X: target.X, Y: target.Y})
			} else {
				if occupant.Color != p.Color {
					moves = append(moves, CandidateMove{X: target.X, Y: target.Y})
				}
				break
			}
			target = Position{X: target.X + dir.X, Y: target.Y + dir.Y}
		}
	}
	return moves
}

type pawnMoves struct{}

func (pawnMoves) candidates(p *Piece, _ bool) []CandidateMove {
	moves := []CandidateMove{}
	board := &p.game.board
	fwd := p.Color.forward()

	one := Position{X: p.X, Y: p.Y + fwd}
	if one.InBounds() && board.At(one) == nil {
		moves = append(moves, CandidateMove{X: one.X, Y: one.Y})
		// a pawn still on its start rank may advance two
		two := Position{X: p.X, Y: p.Y + 2*fwd}
		if p.Y == p.Color.homeRank()+fwd && board.At(two) == nil {
			moves = append(moves, CandidateMove{X: two.X, Y: two.Y})
		}
	}

	for _, dx := range []int{-1, 1} {
		target := Position{X: p.X + dx, Y: p.Y + fwd}
		if !target.InBounds() {
			continue
		}
		if occupant := board.At(target); occupant != nil && occupant.Color != p.Color {
			moves = append(moves, CandidateMove{X: target.X, Y: target.Y})
		}
	}

	if target := p.game.enPassantTarget(); target != nil && p.Color == p.game.SideToMove() &&
		target.Y == p.Y+fwd && (target.X == p.X-1 || target.X == p.X+1) {
		victim := Position{X: target.X, Y: p.Y}
		if occupant := board.At(victim); occupant != nil && occupant.Type == Pawn && occupant.Color != p.Color {
			moves = append(moves, CandidateMove{
				X:         target.X,
				Y:         target.Y,
				Secondary: &SecondaryMove{From: victim, To: nil},
			})
		}
	}
	return moves
}

type kingMoves struct{}

func (kingMoves) candidates(p *Piece, strict bool) []CandidateMove {
	moves := stepMoves{dirs: queenDirs}.candidates(p, strict)
	if strict {
		moves = append(moves, p.game.castleMoves(p)...)
	}
	return moves
}
