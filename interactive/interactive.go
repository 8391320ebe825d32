package interactive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/encoding"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"go2tv.app/rokucast/device"
)

type stateReader interface {
	CurrentState() *device.State
	ForceRefresh(ctx context.Context) (*device.State, error)
	Failures() int
}

type commander interface {
	Keypress(ctx context.Context, key string) error
}

// NewScreen is the interactive remote-control terminal.
type NewScreen struct {
	Current    tcell.Screen
	deviceName string
	lastAction string
}

// InitTcellNewScreen .
func InitTcellNewScreen() (*NewScreen, error) {
	s, e := tcell.NewScreen()
	if e != nil {
		return nil, errors.New("can't start new interactive screen")
	}
	return &NewScreen{
		Current: s,
	}, nil
}

func (p *NewScreen) emitStr(x, y int, style tcell.Style, str string) {
	s := p.Current
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

func formatState(state *device.State, failures int) string {
	if state == nil {
		if failures > 0 {
			return fmt.Sprintf("Device state unknown (%d failed attempts)", failures)
		}
		return "Waiting for device state..."
	}

	var b strings.Builder
	b.WriteString("Power: " + string(state.Power))

	if state.AppName != "" {
		b.WriteString("  App: " + state.AppName)
	}

	b.WriteString("  Playback: " + string(state.Playback))

	if state.Position != nil && state.Duration != nil {
		b.WriteString(fmt.Sprintf("  %s / %s", state.Position.Round(time.Second), state.Duration.Round(time.Second)))
	}

	if state.Volume != nil {
		b.WriteString(fmt.Sprintf("  Vol: %d", *state.Volume))
	}

	return b.String()
}

const remoteHelp = "Arrows move - Enter select - b back - h home - p play/pause - +/-/m volume - r refresh"

// EmitMsg - Display the current device state line.
func (p *NewScreen) EmitMsg(inputtext string) {
	p.lastAction = inputtext
	s := p.Current
	w, h := s.Size()

	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)

	s.Clear()

	title := "Remote: " + p.deviceName
	p.emitStr(w/2-len(title)/2, h/2-2, tcell.StyleDefault, title)
	p.emitStr(w/2-len(inputtext)/2, h/2, boldStyle, inputtext)
	p.emitStr(1, 1, tcell.StyleDefault, "Press ESC to exit.")
	p.emitStr(w/2-len(remoteHelp)/2, h/2+2, tcell.StyleDefault, remoteHelp)

	s.Show()
}

// keyForEvent maps a terminal key event to a remote key name.
func keyForEvent(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyUp:
		return device.KeyUp
	case tcell.KeyDown:
		return device.KeyDown
	case tcell.KeyLeft:
		return device.KeyLeft
	case tcell.KeyRight:
		return device.KeyRight
	case tcell.KeyEnter:
		return device.KeySelect
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return device.KeyBack
	}

	switch ev.Rune() {
	case 'b':
		return device.KeyBack
	case 'h':
		return device.KeyHome
	case 'p', ' ':
		return device.KeyPlay
	case 'i':
		return device.KeyInfo
	case '+':
		return device.KeyVolumeUp
	case '-':
		return device.KeyVolumeDown
	case 'm':
		return device.KeyVolumeMute
	}

	return ""
}

// InterInit - Start the interactive terminal. Returns when the user
// presses ESC or ctx is cancelled.
func (p *NewScreen) InterInit(ctx context.Context, reader stateReader, remote commander, deviceName string) {
	p.deviceName = deviceName

	encoding.Register()
	s := p.Current
	if e := s.Init(); e != nil {
		fmt.Fprintf(os.Stderr, "%v\n", e)
		return
	}
	defer s.Fini()

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)

	// Manual refreshes are throttled so a held-down key does not
	// hammer the device.
	throttle := rate.Every(3 * time.Second)
	r := rate.NewLimiter(throttle, 1)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = s.PostEvent(tcell.NewEventInterrupt(nil))
				return
			case <-ticker.C:
				_ = s.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	p.EmitMsg(formatState(reader.CurrentState(), reader.Failures()))

	for {
		if ctx.Err() != nil {
			return
		}

		switch ev := s.PollEvent().(type) {
		case *tcell.EventInterrupt:
			p.EmitMsg(formatState(reader.CurrentState(), reader.Failures()))
		case *tcell.EventResize:
			s.Sync()
			p.EmitMsg(p.lastAction)
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				return
			}

			if ev.Rune() == 'r' {
				if r.Allow() {
					_, _ = reader.ForceRefresh(ctx)
					p.EmitMsg(formatState(reader.CurrentState(), reader.Failures()))
				}
				continue
			}

			if key := keyForEvent(ev); key != "" {
				_ = remote.Keypress(ctx, key)
				p.EmitMsg(formatState(reader.CurrentState(), reader.Failures()))
			}
		}
	}
}

// Fini Method to implement the screen interface.
func (p *NewScreen) Fini() {
	p.Current.Fini()
}
