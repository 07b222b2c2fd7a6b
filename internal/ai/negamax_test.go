package ai

import (
	"errors"
	"testing"

	"github.com/RSG-Group/Chess/internal/model"
)

func square(t *testing.T, s string) model.Position {
	t.Helper()
	pos, err := model.ParseSquare(s)
	if err != nil {
		t.Fatalf("parse square %q: %v", s, err)
	}
	return pos
}

func TestChooseMove(t *testing.T) {
	tests := []struct {
		name     string
		fen      string
		depth    int
		from, to string
	}{
		{name: "FreeQueenDepth1", fen: "r3k3/8/8/8/8/8/8/Q3K3 b - -", depth: 1, from: "a8", to: "a1"},
		{name: "FreeQueenDepth2", fen: "r3k3/8/8/8/8/8/8/Q3K3 b - -", depth: 2, from: "a8", to: "a1"},
		{name: "MateInOne", fen: "k7/8/1K6/8/8/8/8/7R w - -", depth: 2, from: "h1", to: "h8"},
		{name: "PromoteDepth1", fen: "7k/P7/8/8/8/8/8/K7 w - -", depth: 1, from: "a7", to: "a8"},
		{name: "PromoteDepth2", fen: "7k/P7/8/8/8/8/8/K7 w - -", depth: 2, from: "a7", to: "a8"},
		{name: "BlackPromotes", fen: "k7/8/8/8/8/8/p7/7K b - -", depth: 2, from: "a2", to: "a1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := model.ParseFEN(tt.fen)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			fen := g.FEN()
			move, err := NewNegamax(tt.depth, 1).ChooseMove(g)
			if err != nil {
				t.Fatalf("choose: %v", err)
			}
			if move.From != square(t, tt.from) || move.To != square(t, tt.to) {
				t.Fatalf("expected %s%s, got %s%s", tt.from, tt.to, move.From, move.To)
			}
			if g.FEN() != fen {
				t.Fatalf("search changed the position: %q -> %q", fen, g.FEN())
			}
		})
	}
}

func TestChooseMoveWithoutMoves(t *testing.T) {
	g, err := model.ParseFEN("k7/2Q5/1K6/8/8/8/8/8 b - -")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := NewNegamax(2, 1).ChooseMove(g); !errors.Is(err, ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves, got %v", err)
	}
}

func TestAutoPlayAgainstNegamax(t *testing.T) {
	g, err := model.ParseFEN("k7/8/8/8/8/8/p7/7K w - -")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g.SetChooser(NewNegamax(2, 7))

	if _, err := g.Move(square(t, "h1"), square(t, "g1"), model.MoveHooks{AutoPlay: true}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	history := g.History()
	if len(history) != 2 || g.SideToMove() != model.White {
		t.Fatalf("expected one reply with white to move, got %d plies", len(history))
	}
	if p := g.PieceAt(square(t, "a1")); p == nil || p.Type != model.Queen || p.Color != model.Black {
		t.Fatalf("expected the reply to promote on a1, got %+v (fen=%q)", p, g.FEN())
	}
	if got := history[1].Notation; got != "a1=Q+" {
		t.Fatalf("expected a1=Q+, got %q", got)
	}
	if g.PendingPromotion() != nil {
		t.Fatal("automated promotion left pending")
	}
}
