package world

import "sync/atomic"

// HandlerWrap is a function applied to every Handler assigned through
// World.Handle, after nil handlers are normalised to NopHandler. It lets an
// embedding program decorate world handlers globally, for instrumentation or
// event fan-out, without threading the decoration through every call site.
type HandlerWrap func(w *World, h Handler) Handler

var handlerWrap atomic.Pointer[HandlerWrap]

// SetHandlerWrap installs the HandlerWrap applied by World.Handle. Passing nil
// removes the wrapper. Worlds re-wrap their handler the next time Handle is
// called.
func SetHandlerWrap(wrap HandlerWrap) {
	if wrap == nil {
		handlerWrap.Store(nil)
		return
	}
	handlerWrap.Store(&wrap)
}

// wrapHandler applies the installed HandlerWrap, if any, to the handler
// passed.
func wrapHandler(w *World, h Handler) Handler {
	wrap := handlerWrap.Load()
	if wrap == nil {
		return h
	}
	return (*wrap)(w, h)
}
