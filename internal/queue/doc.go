// Package queue serializes narration playback. Payloads are played one at a
// time in the order they were enqueued, by a single drain goroutine that
// exists only while there is work.
package queue
