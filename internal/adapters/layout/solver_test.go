package layout_test

import (
	"context"
	"testing"

	"github.com/mdenis/trailposter/internal/adapters/layout"
	"github.com/mdenis/trailposter/internal/core/domain"
)

func solverCanvas() domain.Canvas {
	return domain.Canvas{Width: 400, Height: 600, ReservedTop: 40, ReservedBottom: 60}
}

func req(x, y, w, h float64, side domain.Side, text string) domain.LabelRequest {
	return domain.LabelRequest{
		Anchor:        domain.XY{X: x, Y: y},
		Text:          text,
		Width:         w,
		Height:        h,
		PreferredSide: side,
	}
}

func TestPlace_OneOutcomePerRequest(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)

	requests := []domain.LabelRequest{
		req(200, 300, 60, 12, domain.SideAbove, "a"),
		req(210, 310, 60, 12, domain.SideAbove, "b"),
		req(190, 290, 60, 12, domain.SideBelow, "c"),
	}
	out, err := s.Place(context.Background(), solverCanvas(), requests, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(requests) {
		t.Fatalf("expected %d outcomes, got %d", len(requests), len(out))
	}
	for i, p := range out {
		if p.Request.Text != requests[i].Text {
			t.Errorf("outcome %d out of order: got %q", i, p.Request.Text)
		}
	}
}

func TestPlace_NoOverlapsAmongPlaced(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)

	var requests []domain.LabelRequest
	for i := 0; i < 10; i++ {
		requests = append(requests, req(200+float64(i)*3, 300, 80, 14, domain.SideAuto, "label"))
	}
	out, err := s.Place(context.Background(), solverCanvas(), requests, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var boxes []domain.Rect
	for _, p := range out {
		if !p.Dropped {
			boxes = append(boxes, p.Box)
		}
	}
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Overlaps(boxes[j]) {
				t.Errorf("placed boxes %d and %d overlap", i, j)
			}
		}
	}
}

func TestPlace_AvoidsObstacles(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)
	canvas := solverCanvas()

	obstacles := []domain.Rect{
		{MinX: 0, MinY: 0, MaxX: canvas.Width, MaxY: canvas.ReservedTop},
		{MinX: 0, MinY: canvas.Height - canvas.ReservedBottom, MaxX: canvas.Width, MaxY: canvas.Height},
	}
	out, err := s.Place(context.Background(), canvas,
		[]domain.LabelRequest{req(200, 50, 60, 12, domain.SideAbove, "near top")},
		obstacles, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Dropped {
		t.Fatal("expected label placed despite reserved band")
	}
	for _, o := range obstacles {
		if out[0].Box.Overlaps(o) {
			t.Errorf("box %+v overlaps obstacle %+v", out[0].Box, o)
		}
	}
}

func TestPlace_AvoidsPolyline(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)
	canvas := solverCanvas()

	// Horizontal track through the anchor row.
	track := []domain.XY{{X: 0, Y: 300}, {X: 400, Y: 300}}
	out, err := s.Place(context.Background(), canvas,
		[]domain.LabelRequest{req(200, 300, 60, 12, domain.SideAuto, "on track")},
		nil, [][]domain.XY{track})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Dropped {
		t.Fatal("expected label placed off the track")
	}
	box := out[0].Box
	if box.MinY <= 300 && box.MaxY >= 300 {
		t.Errorf("box %+v still straddles the track line", box)
	}
}

func TestPlace_ImpossibleFitIsDroppedNotError(t *testing.T) {
	s := layout.NewSolver(50, 4, 60, 2)

	// Label larger than the whole canvas.
	tiny := domain.Canvas{Width: 40, Height: 40}
	out, err := s.Place(context.Background(), tiny,
		[]domain.LabelRequest{req(20, 20, 400, 100, domain.SideAuto, "huge")},
		nil, nil)
	if err != nil {
		t.Fatalf("expected explicit drop, got error: %v", err)
	}
	if len(out) != 1 || !out[0].Dropped {
		t.Fatalf("expected one dropped outcome, got %+v", out)
	}
}

func TestPlace_Deterministic(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)

	requests := []domain.LabelRequest{
		req(200, 300, 60, 12, domain.SideAbove, "a"),
		req(205, 305, 60, 12, domain.SideAuto, "b"),
		req(195, 295, 60, 12, domain.SideBelow, "c"),
	}
	first, err := s.Place(context.Background(), solverCanvas(), requests, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Place(context.Background(), solverCanvas(), requests, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i].Box != second[i].Box || first[i].Dropped != second[i].Dropped {
			t.Errorf("outcome %d differs between identical runs", i)
		}
	}
}

func TestPlace_LeaderLineForDistantBox(t *testing.T) {
	s := layout.NewSolver(300, 4, 60, 2)

	// Crowd the anchor so the label lands on a far ring.
	obstacles := []domain.Rect{{MinX: 150, MinY: 250, MaxX: 250, MaxY: 350}}
	out, err := s.Place(context.Background(), solverCanvas(),
		[]domain.LabelRequest{req(200, 300, 40, 12, domain.SideAuto, "far")},
		obstacles, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Dropped {
		t.Fatal("expected placement outside the obstacle")
	}
	if len(out[0].Leader) != 2 {
		t.Errorf("expected a leader line back to the anchor, got %v", out[0].Leader)
	}
	if out[0].Leader[0] != (domain.XY{X: 200, Y: 300}) {
		t.Errorf("leader must start at the anchor, got %v", out[0].Leader[0])
	}
}
