// Package viewport holds the 1D window over a contig that drives which
// ranges of alignment, sequence, feature, and cytoband data must be
// resident, per the data-requirement engine in package browserstate.
package viewport

import "github.com/grailbio/gaze/contig"

// OnScreenKind distinguishes the three shapes OnscreenX can return.
type OnScreenKind int

const (
	// KindLeft means the coordinate lies d columns to the left of the
	// viewport.
	KindLeft OnScreenKind = iota
	// KindOnScreen means the coordinate is visible at column X.
	KindOnScreen
	// KindRight means the coordinate lies d columns to the right of the
	// viewport.
	KindRight
)

// OnScreenPos is the result of Viewport.OnscreenX.
type OnScreenPos struct {
	Kind OnScreenKind
	X    int // valid when Kind == KindOnScreen
	D    int // valid when Kind == KindLeft or KindRight; always >= 1
}

// Viewport is the window state: which contig, which reference columns,
// how many bases per column, and which pileup row is topmost.
type Viewport struct {
	ContigIndex int
	Left        int // 1-based inclusive
	Zoom        int // bases per column, >= 1
	Top         int // 0-based first visible pileup row

	// Width is the character-cell width of the viewing area. It is fixed
	// for the life of the Viewport (a terminal resize rebuilds it).
	Width int
}

// New constructs a Viewport positioned at left, with zoom 1 and top 0.
func New(contigIndex, left, width int) *Viewport {
	if left < 1 {
		left = 1
	}
	if width < 1 {
		width = 1
	}
	return &Viewport{ContigIndex: contigIndex, Left: left, Zoom: 1, Top: 0, Width: width}
}

// Right returns the 1-based inclusive reference coordinate of the
// rightmost visible column.
func (v *Viewport) Right() int {
	return v.Left + v.Width*v.Zoom - 1
}

// Middle returns the 1-based reference coordinate at the center of the
// viewport.
func (v *Viewport) Middle() int {
	return v.Left + (v.Width*v.Zoom)/2
}

// clampLeft enforces left in [1, contigLength-width*zoom+1] when the
// contig length is known (contigLength > 0), else just left >= 1.
func (v *Viewport) clampLeft(left int, contigLength int64) int {
	if left < 1 {
		left = 1
	}
	if contigLength > 0 {
		upper := int(contigLength) - v.Width*v.Zoom + 1
		if upper < 1 {
			upper = 1
		}
		if left > upper {
			left = upper
		}
	}
	return left
}

// MoveLeft shifts the window left by n columns (n*zoom bases). contigLength
// of 0 means "unknown".
func (v *Viewport) MoveLeft(n int, contigLength int64) {
	v.Left = v.clampLeft(v.Left-n*v.Zoom, contigLength)
}

// MoveRight shifts the window right by n columns (n*zoom bases).
func (v *Viewport) MoveRight(n int, contigLength int64) {
	v.Left = v.clampLeft(v.Left+n*v.Zoom, contigLength)
}

// SetMiddle repositions the window so that Middle() == pos (subject to
// clamping).
func (v *Viewport) SetMiddle(pos int, contigLength int64) {
	left := pos - (v.Width*v.Zoom)/2
	v.Left = v.clampLeft(left, contigLength)
}

// ZoomIn increases resolution (fewer bases per column) by factor r >= 1,
// keeping the old middle in view.
func (v *Viewport) ZoomIn(r int, contigLength int64) {
	v.rezoom(v.Zoom/r, contigLength)
}

// ZoomOut decreases resolution (more bases per column) by factor r >= 1,
// keeping the old middle in view.
func (v *Viewport) ZoomOut(r int, contigLength int64) {
	v.rezoom(v.Zoom*r, contigLength)
}

func (v *Viewport) rezoom(newZoom int, contigLength int64) {
	oldMiddle := v.Middle()
	if newZoom < 1 {
		newZoom = 1
	}
	if contigLength > 0 && v.Width > 0 {
		maxZoom := int(contigLength) / v.Width
		if maxZoom < 1 {
			maxZoom = 1
		}
		if newZoom > maxZoom {
			newZoom = maxZoom
		}
	}
	v.Zoom = newZoom
	v.SetMiddle(oldMiddle, contigLength)
}

// MoveUp scrolls the pileup up by n rows, clamped to >= 0.
func (v *Viewport) MoveUp(n int) {
	v.Top -= n
	if v.Top < 0 {
		v.Top = 0
	}
}

// MoveDown scrolls the pileup down by n rows, clamped to <= depth-1.
func (v *Viewport) MoveDown(n, depth int) {
	v.Top += n
	max := depth - 1
	if max < 0 {
		max = 0
	}
	if v.Top > max {
		v.Top = max
	}
}

// OnscreenX maps a 1-based reference coordinate to its on-screen column,
// or its off-screen distance in columns if out of [Left, Right].
func (v *Viewport) OnscreenX(p int) OnScreenPos {
	left, right := v.Left, v.Right()
	if p < left {
		d := (left - p) / v.Zoom
		if d < 1 {
			d = 1
		}
		return OnScreenPos{Kind: KindLeft, D: d}
	}
	if p > right {
		d := (p - right) / v.Zoom
		if d < 1 {
			d = 1
		}
		return OnScreenPos{Kind: KindRight, D: d}
	}
	return OnScreenPos{Kind: KindOnScreen, X: (p - left) / v.Zoom}
}

// CoordOfX maps a screen column c in [0, Width) to the reference range it
// covers: [left+c*zoom, left+(c+1)*zoom-1].
func (v *Viewport) CoordOfX(c int) (lo, hi int) {
	lo = v.Left + c*v.Zoom
	hi = v.Left + (c+1)*v.Zoom - 1
	return lo, hi
}

// VisibleRegion returns the unwidened [Left,Right] region.
func (v *Viewport) VisibleRegion() contig.Region {
	return contig.Region{ContigIndex: v.ContigIndex, Start: int64(v.Left), End: int64(v.Right())}
}

// WidenAlignment returns the alignment cache region (×3), per spec.md
// §4.8's cache-widening ratios.
func (v *Viewport) WidenAlignment(contigLength int64) contig.Region {
	return v.VisibleRegion().Widen(3, contigLength)
}

// WidenSequence returns the sequence cache region (×6).
func (v *Viewport) WidenSequence(contigLength int64) contig.Region {
	return v.VisibleRegion().Widen(6, contigLength)
}

// WidenFeatures returns the feature (gene/exon) cache region (×10).
func (v *Viewport) WidenFeatures(contigLength int64) contig.Region {
	return v.VisibleRegion().Widen(10, contigLength)
}
