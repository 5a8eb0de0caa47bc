// Package audio plays raw 16-bit PCM narration using oto/v3. Playback is
// locked until Unlock is called from a user gesture; the oto context is
// created exactly once, on that first unlock.
package audio
