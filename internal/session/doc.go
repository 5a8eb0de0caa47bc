// Package session drives a guided workout: the phase state machine, the
// one-second countdown timer and the event loop that serializes every
// mutation onto a single goroutine.
package session
