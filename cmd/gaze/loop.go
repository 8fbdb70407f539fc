package main

import (
	"context"

	"github.com/grailbio/base/log"

	"github.com/grailbio/gaze/browserstate"
	"github.com/grailbio/gaze/viewport"
)

// Command is a single user-driven viewport mutation, the vocabulary an
// InputSource translates raw key/mouse events into.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandScrollLeft
	CommandScrollRight
	CommandZoomIn
	CommandZoomOut
	CommandNextContig
	CommandPreviousContig
)

// Renderer draws one frame of the browser: the reference, the pileup, the
// gene track, and the cytoband ideogram, against the currently-held
// browserstate.State and viewport.Viewport. Character-cell rendering and
// the choice of terminal UI library are out of gaze's core scope (spec.md
// §1); this interface is the seam a concrete terminal frontend plugs into.
type Renderer interface {
	Render(state *browserstate.State, v *viewport.Viewport) error
}

// InputSource supplies the next user command, blocking until one arrives
// or ctx is canceled. Like Renderer, the terminal input loop itself is out
// of scope; this interface is the seam a concrete implementation (e.g. a
// raw-mode stdin reader) plugs into.
type InputSource interface {
	Next(ctx context.Context) (Command, error)
}

// termRenderer and termInput are left unimplemented: gaze's core handles
// state and viewport mutation, but owns no terminal I/O library. A real
// frontend replaces these two types with a termbox/tcell-backed
// implementation of Renderer/InputSource.
type termRenderer struct{}

func (termRenderer) Render(state *browserstate.State, v *viewport.Viewport) error {
	return nil
}

type termInput struct{}

func (termInput) Next(ctx context.Context) (Command, error) {
	<-ctx.Done()
	return CommandQuit, ctx.Err()
}

// scrollColumns and zoomFactor are the step sizes a single scroll/zoom
// command applies; a real InputSource may translate held-key repeats into
// multiple commands instead of varying these.
const (
	scrollColumns = 10
	zoomFactor    = 2
)

// runLoop drives the render/input/mutate cycle: render the current state,
// read the next command, apply it to v, fetch whatever data that mutation
// now requires, and repeat until CommandQuit or ctx is canceled.
func runLoop(ctx context.Context, state *browserstate.State, v *viewport.Viewport, renderer Renderer, input InputSource) {
	contigLength := contigLengthOf(state, v.ContigIndex)
	for {
		if err := renderer.Render(state, v); err != nil {
			log.Error.Printf("gaze: render failed: %v", err)
		}

		msgs := state.RequiredMessages(v, contigLength)
		if len(msgs) > 0 {
			state.Apply(ctx, msgs)
		}

		cmd, err := input.Next(ctx)
		if err != nil {
			return
		}
		switch cmd {
		case CommandQuit:
			return
		case CommandScrollLeft:
			v.MoveLeft(scrollColumns, contigLength)
		case CommandScrollRight:
			v.MoveRight(scrollColumns, contigLength)
		case CommandZoomIn:
			v.ZoomIn(zoomFactor, contigLength)
		case CommandZoomOut:
			v.ZoomOut(zoomFactor, contigLength)
		case CommandNextContig:
			v.ContigIndex = state.Header.Next(v.ContigIndex, 1)
			contigLength = contigLengthOf(state, v.ContigIndex)
		case CommandPreviousContig:
			v.ContigIndex = state.Header.Previous(v.ContigIndex, 1)
			contigLength = contigLengthOf(state, v.ContigIndex)
		}
	}
}

func contigLengthOf(state *browserstate.State, ci int) int64 {
	c, err := state.Header.TryGet(ci)
	if err != nil || !c.HasLength() {
		return 0
	}
	return c.Length
}
