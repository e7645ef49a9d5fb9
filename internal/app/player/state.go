// Package player controls the player window and its transport buttons.
package player

// State represents the best-known playback state of the page.
// It follows the commands sent and the tracks observed; the page itself is
// not queried.
type State int

const (
	StateUnknown State = iota // No command sent and no track observed yet
	StatePlaying              // Play sent or a track change observed
	StatePaused               // Pause sent
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "invalid"
	}
}
