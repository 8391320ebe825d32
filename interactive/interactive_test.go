package interactive

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"go2tv.app/rokucast/device"
)

func TestFormatState(t *testing.T) {
	position := 90 * time.Second
	duration := 30 * time.Minute
	volume := 18

	tt := []struct {
		state    *device.State
		failures int
		want     string
		name     string
	}{
		{
			nil,
			0,
			"Waiting for device state...",
			`Check unknown state`,
		},
		{
			nil,
			4,
			"Device state unknown (4 failed attempts)",
			`Check unknown state with failures`,
		},
		{
			&device.State{Power: device.PowerStandby, Playback: device.PlaybackIdle},
			0,
			"Power: standby  Playback: idle",
			`Check standby`,
		},
		{
			&device.State{
				Power:    device.PowerOn,
				AppName:  "Netflix",
				Playback: device.PlaybackPlaying,
				Position: &position,
				Duration: &duration,
				Volume:   &volume,
			},
			0,
			"Power: on  App: Netflix  Playback: playing  1m30s / 30m0s  Vol: 18",
			`Check playing with media position`,
		},
	}

	for _, tc := range tt {
		if got := formatState(tc.state, tc.failures); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestKeyForEvent(t *testing.T) {
	tt := []struct {
		ev   *tcell.EventKey
		want string
		name string
	}{
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), device.KeyUp, `Check arrow up`},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), device.KeySelect, `Check enter`},
		{tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone), device.KeyHome, `Check home rune`},
		{tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), device.KeyPlay, `Check play rune`},
		{tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone), device.KeyVolumeUp, `Check volume up`},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), "", `Check unmapped rune`},
	}

	for _, tc := range tt {
		if got := keyForEvent(tc.ev); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
