// Package cache makes embedding provider calls reproducible: FETCH persists
// every provider response into a content-addressed store, REPLAY serves
// strictly from that store and fails closed on a miss.
package cache

import "fmt"

// Mode selects cache behavior on a miss.
type Mode string

const (
	// ModeFetch calls the provider on a miss and persists the result.
	ModeFetch Mode = "fetch"
	// ModeReplay is cache-only: a miss is a hard error, never a live call.
	ModeReplay Mode = "replay"
)

// ParseMode validates a mode string from config.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFetch, ModeReplay:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid cache mode %q: expected %q or %q", s, ModeFetch, ModeReplay)
	}
}
