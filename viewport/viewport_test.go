package viewport

import "testing"

func TestViewportRightMiddle(t *testing.T) {
	v := New(0, 100, 50)
	v.Zoom = 2
	if got := v.Right(); got != 199 {
		t.Errorf("Right() = %d, want 199", got)
	}
	if got := v.Middle(); got != 150 {
		t.Errorf("Middle() = %d, want 150", got)
	}
}

func TestViewportMoveClampsToContigLength(t *testing.T) {
	v := New(0, 1, 50)
	v.Zoom = 1
	v.MoveRight(1000, 60) // contig length 60, width 50 -> upper = 60-50+1 = 11
	if v.Left != 11 {
		t.Errorf("Left = %d, want 11 (clamped)", v.Left)
	}
}

func TestViewportMoveLeftClampsToOne(t *testing.T) {
	v := New(0, 10, 50)
	v.MoveLeft(1000, 0)
	if v.Left != 1 {
		t.Errorf("Left = %d, want 1", v.Left)
	}
}

func TestViewportZoomCapsAtContigOverWidth(t *testing.T) {
	v := New(0, 1, 50)
	v.ZoomOut(1000, 500) // maxZoom = 500/50 = 10
	if v.Zoom != 10 {
		t.Errorf("Zoom = %d, want 10 (capped)", v.Zoom)
	}
}

func TestViewportZoomNeverBelowOne(t *testing.T) {
	v := New(0, 1, 50)
	v.Zoom = 1
	v.ZoomIn(10, 0)
	if v.Zoom != 1 {
		t.Errorf("Zoom = %d, want 1 (floor)", v.Zoom)
	}
}

func TestViewportZoomKeepsMiddleInView(t *testing.T) {
	v := New(0, 1, 50)
	v.Zoom = 1
	v.SetMiddle(500, 0)
	oldMiddle := v.Middle()
	v.ZoomOut(2, 0)
	// Middle should be close to oldMiddle (within one column's worth of
	// rounding from the new, coarser zoom).
	diff := v.Middle() - oldMiddle
	if diff < -v.Zoom || diff > v.Zoom {
		t.Errorf("Middle() drifted by %d after zoom, want within %d", diff, v.Zoom)
	}
}

func TestViewportMoveUpDownClamp(t *testing.T) {
	v := New(0, 1, 50)
	v.MoveDown(5, 3) // depth 3 -> max top index 2
	if v.Top != 2 {
		t.Errorf("Top = %d, want 2", v.Top)
	}
	v.MoveUp(100)
	if v.Top != 0 {
		t.Errorf("Top = %d, want 0", v.Top)
	}
}

// TestOnscreenXRoundTrip is spec.md §8's round-trip property:
// onscreen_x(coord_of_x(c)) == OnScreen(c) for every column c in view.
func TestOnscreenXRoundTrip(t *testing.T) {
	v := New(0, 1000, 80)
	v.Zoom = 3
	for c := 0; c < v.Width; c++ {
		lo, _ := v.CoordOfX(c)
		pos := v.OnscreenX(lo)
		if pos.Kind != KindOnScreen {
			t.Fatalf("column %d: OnscreenX(%d) = %+v, want on-screen", c, lo, pos)
		}
		if pos.X != c {
			t.Errorf("column %d: round trip gave column %d", c, pos.X)
		}
	}
}

func TestOnscreenXOffScreen(t *testing.T) {
	v := New(0, 1000, 80)
	v.Zoom = 1
	left := v.OnscreenX(900)
	if left.Kind != KindLeft || left.D < 1 {
		t.Errorf("OnscreenX(900) = %+v, want KindLeft with D>=1", left)
	}
	right := v.OnscreenX(v.Right() + 500)
	if right.Kind != KindRight || right.D < 1 {
		t.Errorf("OnscreenX(right+500) = %+v, want KindRight with D>=1", right)
	}
}

func TestWidenRatios(t *testing.T) {
	v := New(0, 1000, 10)
	v.Zoom = 1
	align := v.WidenAlignment(0)
	seq := v.WidenSequence(0)
	feat := v.WidenFeatures(0)
	visibleWidth := v.Right() - v.Left + 1
	if w := align.End - align.Start + 1; w <= int64(visibleWidth) {
		t.Errorf("alignment widen width %d should exceed visible width %d", w, visibleWidth)
	}
	if feat.End-feat.Start <= seq.End-seq.Start {
		t.Errorf("feature widen (x10) should be wider than sequence widen (x6)")
	}
}
