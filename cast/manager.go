package cast

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"go2tv.app/rokucast/device"
)

// DefaultReceiverApp is the application id of the side-loaded
// companion receiver that renders externally-sourced streams.
const DefaultReceiverApp = "dev"

// ErrSessionConflict - a cast start was requested while a session is
// already starting or active. One session per device at a time.
var ErrSessionConflict = errors.New("cast: session already active")

// Status is the lifecycle state of a cast session.
type Status string

const (
	StatusStarting Status = "starting"
	StatusActive   Status = "active"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// Session is one externally-sourced stream being cast to the device.
type Session struct {
	StreamURL string
	Format    string
	Device    device.Identity
	Status    Status
	StartedAt time.Time
}

type receiverClient interface {
	Launch(ctx context.Context, appID string, params url.Values) error
	Keypress(ctx context.Context, key string) error
}

// Manager owns the lifecycle of the single active cast session for
// one device. The client it talks through should be a retrying one -
// the receiver app can take a few seconds to come up on a sleeping
// device.
type Manager struct {
	device      device.Identity
	client      receiverClient
	receiverApp string
	now         func() time.Time

	mu      sync.Mutex
	session *Session

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithReceiverApp overrides the companion receiver application id.
func WithReceiverApp(appID string) Option {
	return func(m *Manager) {
		m.receiverApp = appID
	}
}

// WithLogOutput sets the writer the manager logs to.
func WithLogOutput(w io.Writer) Option {
	return func(m *Manager) {
		m.LogOutput = w
	}
}

// NewManager returns a Manager for the given device.
func NewManager(identity device.Identity, client receiverClient, opts ...Option) *Manager {
	m := &Manager{
		device:      identity,
		client:      client,
		receiverApp: DefaultReceiverApp,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Log returns the zerolog logger, initializing it lazily if LogOutput
// is set.
func (m *Manager) Log() *zerolog.Logger {
	if m.LogOutput != nil {
		m.initLogOnce.Do(func() {
			m.Logger = zerolog.New(m.LogOutput).With().Timestamp().Logger()
		})
	}
	return &m.Logger
}

// Start opens the stream on the companion receiver. It fails with
// ErrSessionConflict while another session is starting or active,
// leaving that session untouched.
func (m *Manager) Start(ctx context.Context, streamURL, format string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && (m.session.Status == StatusStarting || m.session.Status == StatusActive) {
		return *m.session, ErrSessionConflict
	}

	session := &Session{
		StreamURL: streamURL,
		Format:    format,
		Device:    m.device,
		Status:    StatusStarting,
		StartedAt: m.now(),
	}
	m.session = session

	m.Log().Info().Str("Host", m.device.Host).Str("URL", streamURL).Str("Format", format).Msg("starting cast session")

	params := url.Values{}
	params.Set("contentId", streamURL)
	if format != "" {
		params.Set("mediaType", format)
	}

	if err := m.client.Launch(ctx, m.receiverApp, params); err != nil {
		session.Status = StatusFailed
		m.Log().Error().Str("Host", m.device.Host).Err(err).Msg("cast start failed")
		return *session, fmt.Errorf("cast start error: %w", err)
	}

	session.Status = StatusActive

	return *session, nil
}

// Stop ends the active session. Stopping is best-effort and
// idempotent: the session always ends Stopped locally, even when the
// receiver cannot be reached.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || (m.session.Status != StatusStarting && m.session.Status != StatusActive) {
		return nil
	}

	if err := m.client.Keypress(ctx, device.KeyHome); err != nil {
		m.Log().Warn().Str("Host", m.device.Host).Err(err).Msg("cast stop command failed, marking session stopped anyway")
	}

	m.session.Status = StatusStopped
	m.Log().Info().Str("Host", m.device.Host).Msg("cast session stopped")

	return nil
}

// Current returns a copy of the current session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}

	return *m.session, true
}

// Reconcile inspects a fresh state snapshot and marks the session
// stopped if the device is no longer running the receiver app, e.g.
// because the user pressed a physical remote button. Wire it to the
// coordinator's refresh hook.
func (m *Manager) Reconcile(state *device.State) {
	if state == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.Status != StatusActive {
		return
	}

	if state.AppID == m.receiverApp {
		return
	}

	m.session.Status = StatusStopped
	m.Log().Info().Str("Host", m.device.Host).Str("ActiveApp", state.AppID).Msg("receiver no longer active, cast session stopped externally")
}
