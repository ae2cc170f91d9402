// Package voice transcribes recorded audio through a Whisperit-compatible
// speech-to-text HTTP API.
package voice
