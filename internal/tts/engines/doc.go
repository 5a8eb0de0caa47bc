// Package engines contains the speech synthesizers: Piper (offline),
// gTTS (online, via gtts-cli and ffmpeg) and a silent mock. Cached wraps
// any of them with a persistent disk cache.
package engines
