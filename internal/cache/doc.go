// Package cache stores synthesized narration audio. SpeechCache lives for
// one workout session and never evicts; DiskCache persists synthesis
// results across runs with zstd compression.
package cache
