package model

import (
	"fmt"
	"strings"
)

// FEN serializes the current position in the 4-field layout: placement,
// active colour, castling rights, en-passant target. Clocks are not written.
func (g *Game) FEN() string {
	var sb strings.Builder

	for y := 0; y < 8; y++ {
		empty := 0
		for x := 0; x < 8; x++ {
			piece := g.board[y][x]
			if piece == nil {
				empty++
				continue
			}
			if empty > 0 {
				fmt.Fprintf(&sb, "%d", empty)
				empty = 0
			}
			sb.WriteString(piece.FEN())
		}
		if empty > 0 {
			fmt.Fprintf(&sb, "%d", empty)
		}
		if y < 7 {
			sb.WriteByte('/')
		}
	}

	if g.SideToMove() == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}

	castling := ""
	for _, color := range []Color{White, Black} {
		for _, side := range []castleSide{kingSide, queenSide} {
			if !g.castlingRight(color, side) {
				continue
			}
			letter := string(side.letter)
			if color == White {
				letter = strings.ToUpper(letter)
			}
			castling += letter
		}
	}
	if castling == "" {
		castling = "-"
	}
	sb.WriteString(castling)

	sb.WriteByte(' ')
	if target := g.enPassantTarget(); target != nil {
		sb.WriteString(target.Square())
	} else {
		sb.WriteByte('-')
	}
	return sb.String()
}

// enPassantTarget is derived from the immediately preceding ply only, a
// simulated one included: the square a pawn skipped over with a two-rank
// advance.
func (g *Game) enPassantTarget() *Position {
	last, ok := g.lastPly()
	if !ok {
		return g.start.enPassant
	}
	if last.Type != Pawn || abs(last.To.Y-last.From.Y) != 2 {
		return nil
	}
	return &Position{X: last.To.X, Y: (last.From.Y + last.To.Y) / 2}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ParseFEN builds a game from the 4-field layout produced by FEN.
func ParseFEN(fen string) (*Game, error) {
	fields := strings.Fields(fen)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: want 4 fields, got %d", ErrInvalidFEN, len(fields))
	}
	g := NewGame()

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: want 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	kings := map[Color]int{}
	for y, rank := range ranks {
		x := 0
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				x += int(c - '0')
				continue
			}
			pt, ok := pieceTypeFromNotation(c)
			if !ok {
				return nil, fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, c)
			}
			if x > 7 {
				return nil, fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, 8-y)
			}
			color := Black
			if c >= 'A' && c <= 'Z' {
				color = White
			}
			if pt == Pawn && (y == 0 || y == 7) {
				return nil, fmt.Errorf("%w: pawn on back rank", ErrInvalidFEN)
			}
			if pt == King {
				kings[color]++
			}
			g.mustPlace(pt, x, y, color)
			x++
		}
		if x != 8 {
			return nil, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-y, x)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return nil, fmt.Errorf("%w: need exactly one king per side", ErrInvalidFEN)
	}

	switch fields[1] {
	case "w":
		g.start.toMove = White
	case "b":
		g.start.toMove = Black
	default:
		return nil, fmt.Errorf("%w: active color %q", ErrInvalidFEN, fields[1])
	}

	g.start.castling = ""
	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			c := fields[2][i]
			if strings.IndexByte("KQkq", c) < 0 || strings.IndexByte(g.start.castling, c) >= 0 {
				return nil, fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
			g.start.castling += string(c)
		}
	}

	if fields[3] != "-" {
		target, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, fields[3])
		}
		wantY := 2
		if g.start.toMove == Black {
			wantY = 5
		}
		if target.Y != wantY {
			return nil, fmt.Errorf("%w: en passant %q for side to move", ErrInvalidFEN, fields[3])
		}
		g.start.enPassant = &target
	}
	return g, nil
}
