package model

import "fmt"

type PieceType string

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

func (p PieceType) getPieceNotation() string {
	switch p {
	case King:
		return "k"
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	case Pawn:
		return "p"
	}
	return ""
}

// Letter is the lowercase FEN letter of the piece type.
func (p PieceType) Letter() string {
	return p.getPieceNotation()
}

func pieceTypeFromNotation(c byte) (PieceType, bool) {
	switch c {
	case 'k', 'K':
		return King, true
	case 'q', 'Q':
		return Queen, true
	case 'r', 'R':
		return Rook, true
	case 'b', 'B':
		return Bishop, true
	case 'n', 'N':
		return Knight, true
	case 'p', 'P':
		return Pawn, true
	}
	return "", false
}

// ParsePieceType accepts the lowercase piece names used by the API.
func ParsePieceType(s string) (PieceType, bool) {
	switch pt := PieceType(s); pt {
	case King, Queen, Rook, Bishop, Knight, Pawn:
		return pt, true
	}
	return "", false
}

type Color string

const (
	White Color = "W"
	Black Color = "B"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// homeRank is the back rank index for the colour.
func (c Color) homeRank() int {
	if c == White {
		return 7
	}
	return 0
}

// forward is the Y step a pawn of this colour advances by.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

// Square renders the position in algebraic form, e.g. e4.
func (p Position) Square() string {
	return fmt.Sprintf("%c%d", p.X+97, 8-p.Y)
}

func (p Position) String() string {
	return p.Square()
}

func ParseSquare(s string) (Position, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Position{}, fmt.Errorf("%w: square %q", ErrOutOfBounds, s)
	}
	return Position{X: int(s[0] - 'a'), Y: 8 - int(s[1]-'0')}, nil
}

// Board is indexed [y][x]. A piece's X/Y always equal the cell that holds it.
type Board [8][8]*Piece

func (b *Board) At(pos Position) *Piece {
	if !pos.InBounds() {
		return nil
	}
	return b[pos.Y][pos.X]
}

func (b *Board) Pieces(color Color) []*Piece {
	pieces := []*Piece{}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if b[y][x] != nil && b[y][x].Color == color {
				pieces = append(pieces, b[y][x])
			}
		}
	}
	return pieces
}

// King scans for the king of the given colour. There is no cached king
// position: a moved king must always be found fresh.
func (b *Board) King(color Color) *Piece {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if p := b[y][x]; p != nil && p.Color == color && p.Type == King {
				return p
			}
		}
	}
	return nil
}

// relocate places piece at to (updating its coordinates) and clears from.
// Either end may be nil: only to is a placement, only from is a removal.
// It never touches history.
func (b *Board) relocate(piece *Piece, from, to *Position) {
	if from != nil {
		b[from.Y][from.X] = nil
	}
	if to != nil {
		b[to.Y][to.X] = piece
		piece.X = to.X
		piece.Y = to.Y
	}
}

func (b *Board) checkInvariants() error {
	seen := make(map[*Piece]Position)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := b[y][x]
			if p == nil {
				continue
			}
			if p.X != x || p.Y != y {
				return fmt.Errorf("%w: piece at %s claims %s", ErrInvariantViolation,
					Position{X: x, Y: y}, p.Position())
			}
			if prev, ok := seen[p]; ok {
				return fmt.Errorf("%w: piece referenced from %s and %s", ErrInvariantViolation,
					prev, Position{X: x, Y: y})
			}
			seen[p] = Position{X: x, Y: y}
		}
	}
	return nil
}
