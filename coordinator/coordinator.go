package coordinator

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/singleflight"

	"go2tv.app/rokucast/device"
	"go2tv.app/rokucast/ecp"
)

const (
	defaultInterval           = 10 * time.Second
	defaultFullUpdateInterval = 15 * time.Minute
	defaultBackoffFactor      = 2
	defaultMaxInterval        = 300 * time.Second

	// Oldest firmware the controller is known to work against.
	minSupportedFirmware = "v9.0.0"
)

type deviceClient interface {
	DeviceInfo(ctx context.Context) (*ecp.DeviceInfo, error)
	MediaPlayer(ctx context.Context) (*ecp.PlayerStatus, error)
}

// Config carries the refresh tunables. The zero value picks the
// defaults.
type Config struct {
	Interval           time.Duration
	FullUpdateInterval time.Duration
	BackoffFactor      float64
	MaxInterval        time.Duration
}

func (c *Config) withDefaults() {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.FullUpdateInterval <= 0 {
		c.FullUpdateInterval = defaultFullUpdateInterval
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = defaultBackoffFactor
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = defaultMaxInterval
	}
}

// Coordinator keeps the state cache reasonably fresh without
// overloading the device. One background loop drives the periodic
// refresh; callers can additionally force an out-of-band refresh and
// both paths are coalesced into a single in-flight fetch per device.
type Coordinator struct {
	identity device.Identity
	client   deviceClient
	cache    Cache
	cfg      Config

	group singleflight.Group
	now   func() time.Time

	mu             sync.Mutex
	info           *ecp.DeviceInfo
	lastFull       time.Time
	backoffLevel   int
	firmwareWarned bool
	onRefresh      []func(*device.State)

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// New returns a Coordinator for the given device.
func New(identity device.Identity, client deviceClient, cfg Config) *Coordinator {
	cfg.withDefaults()

	return &Coordinator{
		identity: identity,
		client:   client,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput
// is set.
func (c *Coordinator) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// Identity returns the device identity the coordinator polls.
func (c *Coordinator) Identity() device.Identity {
	return c.identity
}

// CurrentState returns the most recently completed snapshot, or nil
// before the first successful fetch. It never blocks.
func (c *Coordinator) CurrentState() *device.State {
	return c.cache.Read()
}

// Failures returns the consecutive-failure counter of the cache.
func (c *Coordinator) Failures() int {
	return c.cache.Failures()
}

// LastAttempt returns the timestamp of the last fetch attempt.
func (c *Coordinator) LastAttempt() time.Time {
	return c.cache.LastAttempt()
}

// Info returns the device info from the last full update, or nil.
func (c *Coordinator) Info() *ecp.DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.info
}

// OnRefresh registers a hook invoked with every successful snapshot.
// Hooks must not block; they run on the refreshing goroutine.
func (c *Coordinator) OnRefresh(fn func(*device.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onRefresh = append(c.onRefresh, fn)
}

// ForceRefresh triggers an out-of-band fetch and returns once it
// completes. If a fetch is already in flight the call joins it and
// shares its outcome instead of issuing a duplicate one.
func (c *Coordinator) ForceRefresh(ctx context.Context) (*device.State, error) {
	return c.refresh(ctx)
}

// Run drives the periodic refresh until ctx is cancelled. Failures are
// absorbed here - there is no caller to report them to - and stretch
// the next interval via exponential backoff.
func (c *Coordinator) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_, _ = c.refresh(ctx)
			timer.Reset(c.nextInterval())
		}
	}
}

func (c *Coordinator) refresh(ctx context.Context) (*device.State, error) {
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	return v.(*device.State), nil
}

func (c *Coordinator) doRefresh(ctx context.Context) (*device.State, error) {
	now := c.now()

	c.mu.Lock()
	info := c.info
	full := info == nil || now.Sub(c.lastFull) >= c.cfg.FullUpdateInterval
	c.mu.Unlock()

	if full {
		fresh, err := c.client.DeviceInfo(ctx)
		if err != nil {
			return nil, c.recordFailure(err, now)
		}

		c.mu.Lock()
		c.info = fresh
		c.lastFull = now
		c.mu.Unlock()

		info = fresh
		c.checkFirmware(fresh)
	}

	player, err := c.client.MediaPlayer(ctx)
	if err != nil {
		return nil, c.recordFailure(err, now)
	}

	state := mergeState(info, player, now)
	c.cache.ApplySuccess(state)

	c.mu.Lock()
	c.backoffLevel = 0
	hooks := append([]func(*device.State){}, c.onRefresh...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(state)
	}

	c.Log().Debug().Str("Host", c.identity.Host).Str("Power", string(state.Power)).Str("Playback", string(state.Playback)).Msg("device state refreshed")

	return state, nil
}

func (c *Coordinator) recordFailure(err error, at time.Time) error {
	c.cache.ApplyFailure(at)

	if errors.Is(err, ecp.ErrUnreachable) || errors.Is(err, ecp.ErrTimeout) {
		c.mu.Lock()
		c.backoffLevel++
		level := c.backoffLevel
		c.mu.Unlock()

		c.Log().Warn().Str("Host", c.identity.Host).Err(err).Int("Failures", c.cache.Failures()).Int("BackoffLevel", level).Msg("device refresh failed")
		return err
	}

	// The device is reachable but sent something unexpected. Treated
	// as a one-off protocol hiccup: the next refresh keeps its pace.
	c.Log().Warn().Str("Host", c.identity.Host).Err(err).Msg("device answered with an unexpected payload")

	return err
}

func (c *Coordinator) nextInterval() time.Duration {
	c.mu.Lock()
	level := c.backoffLevel
	c.mu.Unlock()

	if level == 0 {
		return c.cfg.Interval
	}

	next := time.Duration(float64(c.cfg.Interval) * math.Pow(c.cfg.BackoffFactor, float64(level)))
	if next > c.cfg.MaxInterval || next <= 0 {
		next = c.cfg.MaxInterval
	}

	return next
}

// normalizeVersion adds the "v" prefix the semver package strictly
// requires.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

func (c *Coordinator) checkFirmware(info *ecp.DeviceInfo) {
	c.mu.Lock()
	warned := c.firmwareWarned
	c.firmwareWarned = true
	c.mu.Unlock()

	if warned {
		return
	}

	v := normalizeVersion(info.SoftwareVersion)
	if !semver.IsValid(v) {
		return
	}

	if semver.Compare(v, minSupportedFirmware) < 0 {
		c.Log().Warn().Str("Firmware", info.SoftwareVersion).Str("Minimum", strings.TrimPrefix(minSupportedFirmware, "v")).Msg("device firmware is older than the minimum supported version")
	}
}

func mergeState(info *ecp.DeviceInfo, player *ecp.PlayerStatus, at time.Time) *device.State {
	state := &device.State{
		Power:     powerFromMode(info.PowerMode),
		Playback:  device.PlaybackIdle,
		FetchedAt: at,
	}

	if state.Power != device.PowerOn {
		return state
	}

	state.AppID = player.AppID
	state.AppName = player.AppName
	state.Playback = playbackFromState(player.State)
	state.Live = player.Live
	state.Volume = player.Volume
	state.Muted = player.Muted

	if state.Playback != device.PlaybackIdle {
		state.Position = player.Position
		state.Duration = player.Duration
	}

	return state
}

func powerFromMode(mode string) device.PowerState {
	switch mode {
	case "PowerOn":
		return device.PowerOn
	case "PowerOff":
		return device.PowerOff
	default:
		// DisplayOff, Headless and Ready all mean the device is up but
		// not rendering to the display.
		return device.PowerStandby
	}
}

func playbackFromState(s string) device.PlaybackState {
	switch s {
	case "play":
		return device.PlaybackPlaying
	case "pause":
		return device.PlaybackPaused
	case "buffer", "open", "startup":
		return device.PlaybackLoading
	default:
		return device.PlaybackIdle
	}
}
