// Package ai provides the automated opponent. It searches the legal moves of
// the side to move with a plain negamax over material and picks one of the
// best-scoring moves at random.
package ai

import (
	"errors"
	"math"
	"math/rand"

	"github.com/RSG-Group/Chess/internal/model"
)

var ErrNoMoves = errors.New("no legal moves")

const mateScore = 100000.0

var values = map[model.PieceType]float64{
	model.Pawn:   1,
	model.Knight: 3,
	model.Bishop: 3,
	model.Rook:   5,
	model.Queen:  9,
	model.King:   0,
}

// Negamax implements model.MoveChooser. It is not safe for concurrent use.
type Negamax struct {
	depth int
	rng   *rand.Rand
}

func NewNegamax(depth int, seed int64) *Negamax {
	if depth < 1 {
		depth = 1
	}
	return &Negamax{depth: depth, rng: rand.New(rand.NewSource(seed))}
}

type candidate struct {
	piece *model.Piece
	move  model.CandidateMove
}

func (n *Negamax) ChooseMove(g *model.Game) (model.SimpleMove, error) {
	side := g.SideToMove()
	moves := legalMoves(g, side)
	if len(moves) == 0 {
		return model.SimpleMove{}, ErrNoMoves
	}
	n.rng.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })

	var best model.SimpleMove
	bestScore := math.Inf(-1)
	for _, c := range moves {
		from := c.piece.Position()
		var score float64
		g.WithSimulatedMove(c.piece, c.move, func() {
			score = -n.negaMax(g, side.Opponent(), n.depth-1)
		})
		if score > bestScore {
			best = model.SimpleMove{From: from, To: c.move.Position()}
			bestScore = score
		}
	}
	return best, nil
}

func (n *Negamax) negaMax(g *model.Game, side model.Color, depth int) float64 {
	if depth <= 0 {
		return evaluate(g, side)
	}
	moves := legalMoves(g, side)
	if len(moves) == 0 {
		if g.Attacked(side) {
			return -mateScore
		}
		return 0
	}
	bestScore := math.Inf(-1)
	for _, c := range moves {
		var score float64
		g.WithSimulatedMove(c.piece, c.move, func() {
			score = -n.negaMax(g, side.Opponent(), depth-1)
		})
		if score > bestScore {
			bestScore = score
		}
	}
	return bestScore
}

func legalMoves(g *model.Game, side model.Color) []candidate {
	board := g.Board()
	moves := []candidate{}
	for _, p := range board.Pieces(side) {
		for _, m := range p.ValidMoves(true) {
			moves = append(moves, candidate{piece: p, move: m})
		}
	}
	return moves
}

// evaluate scores material from side's point of view. The search does not
// swap a pawn that reached the last rank for a new piece, so such a pawn
// counts as a queen. A pawn one step from promotion earns a smaller bonus.
func evaluate(g *model.Game, side model.Color) float64 {
	board := g.Board()
	score := 0.0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := board[y][x]
			if p == nil {
				continue
			}
			s := values[p.Type]
			if p.Type == model.Pawn {
				switch ranksToGo(p.Color, y) {
				case 0:
					s = values[model.Queen]
				case 1:
					s = values[model.Pawn] + 1
				}
			}
			if p.Color != side {
				s = -s
			}
			score += s
		}
	}
	return score
}

func ranksToGo(c model.Color, y int) int {
	if c == model.White {
		return y
	}
	return 7 - y
}
