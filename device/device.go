package device

import (
	"net"
	"strconv"
	"time"
)

// DefaultControlPort is the fixed port the appliance exposes its
// control protocol on.
const DefaultControlPort = 8060

// Identity describes a single appliance on the network. It is
// populated once at setup time and never mutated afterwards.
type Identity struct {
	Host   string
	Port   int
	Serial string
	Model  string
}

// Addr returns the host:port pair for the control endpoint.
func (i Identity) Addr() string {
	port := i.Port
	if port == 0 {
		port = DefaultControlPort
	}
	return net.JoinHostPort(i.Host, strconv.Itoa(port))
}

// PowerState reports whether the appliance display is on.
type PowerState string

const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerStandby PowerState = "standby"
)

// PlaybackState is the playback portion of a state snapshot.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackLoading PlaybackState = "loading"
)

// State is an immutable snapshot of the appliance as observed by one
// refresh cycle. A new fetch always produces a new State that replaces
// the previous one atomically; individual fields are never mutated in
// place.
type State struct {
	Power    PowerState
	AppID    string
	AppName  string
	Playback PlaybackState

	// Position and Duration are only meaningful while Playback is not
	// idle. Nil means the appliance did not report them.
	Position *time.Duration
	Duration *time.Duration
	Live     bool

	// Volume and Muted are optional protocol extensions. Nil when the
	// firmware does not report them.
	Volume *int
	Muted  *bool

	FetchedAt time.Time
}

// Playing reports whether any application is actively rendering media.
func (s *State) Playing() bool {
	return s != nil && (s.Playback == PlaybackPlaying || s.Playback == PlaybackPaused || s.Playback == PlaybackLoading)
}
