package tui

import "github.com/charmbracelet/bubbles/viewport"

// ScrollObserver is the scroll position of a log pane. The follow rule
// needs to know whether the reader was pinned to the tail before new
// lines arrived.
type ScrollObserver interface {
	AtBottom() bool
	ScrollToBottom()
}

// FollowAppend applies a content mutation and keeps the pane pinned to
// the tail only if the reader was already there. A reader who scrolled
// up to inspect earlier output stays put.
func FollowAppend(obs ScrollObserver, apply func()) {
	pinned := obs.AtBottom()
	apply()
	if pinned {
		obs.ScrollToBottom()
	}
}

// viewportScroll adapts a bubbles viewport to ScrollObserver.
type viewportScroll struct {
	vp *viewport.Model
}

func (v viewportScroll) AtBottom() bool { return v.vp.AtBottom() }

func (v viewportScroll) ScrollToBottom() { v.vp.GotoBottom() }
