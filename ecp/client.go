package ecp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultPort is the fixed control port the appliance listens on.
const DefaultPort = 8060

// Client is a stateless request/response wrapper over the device's
// HTTP/XML control API. It performs no retries of its own; retry
// policy belongs to the callers that need one.
type Client struct {
	host   string
	port   int
	client *http.Client

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithPort overrides the default control port.
func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithRetries swaps the HTTP client for a retrying one. The protocol
// layer itself never retries; this exists for callers whose multi-step
// operations carry their own retry semantics, such as cast start.
func WithRetries(retryMax int) Option {
	return func(c *Client) {
		c.client = newRetryableHTTPClient(retryMax)
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogOutput sets the writer the client logs to.
func WithLogOutput(w io.Writer) Option {
	return func(c *Client) {
		c.LogOutput = w
	}
}

// NewClient returns a Client for the device at host.
func NewClient(host string, opts ...Option) *Client {
	c := &Client{
		host:   host,
		port:   DefaultPort,
		client: newHTTPClient(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Log returns the zerolog logger, initializing it lazily if LogOutput
// is set.
func (c *Client) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// Host returns the device host the client talks to.
func (c *Client) Host() string {
	return c.host
}

func (c *Client) baseURL() string {
	return "http://" + net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// IconURL returns the URL serving the icon of the given application.
func (c *Client) IconURL(appID string) string {
	return c.baseURL() + "/query/icon/" + url.PathEscape(appID)
}

// Fetch issues a GET request for the given relative path and returns
// the raw response body.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch NewRequest error: %w", err)
	}

	c.Log().Debug().Str("Method", "Fetch").Str("Path", path).Msg("querying device")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return body, nil
}

// Command issues a POST request for the given relative path. The
// device acknowledges control actions with an empty 200 response, so
// the body is discarded.
func (c *Client) Command(ctx context.Context, path string, params url.Values) error {
	target := c.baseURL() + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return fmt.Errorf("command NewRequest error: %w", err)
	}

	c.Log().Debug().Str("Method", "Command").Str("Path", path).Msg("sending command")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// DeviceInfo fetches and parses the device-info query.
func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	body, err := c.Fetch(ctx, "/query/device-info")
	if err != nil {
		return nil, err
	}

	return parseDeviceInfo(body)
}

// MediaPlayer fetches and parses the media-player query.
func (c *Client) MediaPlayer(ctx context.Context) (*PlayerStatus, error) {
	body, err := c.Fetch(ctx, "/query/media-player")
	if err != nil {
		return nil, err
	}

	return parsePlayerStatus(body)
}

// Apps fetches the list of installed applications, preserving the
// order the device reports them in.
func (c *Client) Apps(ctx context.Context) ([]App, error) {
	body, err := c.Fetch(ctx, "/query/apps")
	if err != nil {
		return nil, err
	}

	apps, err := parseApps(body)
	if err != nil {
		return nil, err
	}

	for i := range apps {
		apps[i].Icon = c.IconURL(apps[i].ID)
	}

	return apps, nil
}

// Keypress emulates a single remote-control key press.
func (c *Client) Keypress(ctx context.Context, key string) error {
	return c.Command(ctx, "/keypress/"+url.PathEscape(key), nil)
}

// Launch starts the given application, optionally passing deep-link
// parameters as query values.
func (c *Client) Launch(ctx context.Context, appID string, params url.Values) error {
	return c.Command(ctx, "/launch/"+url.PathEscape(appID), params)
}

// Input sends a generic media-playback request to the input endpoint.
func (c *Client) Input(ctx context.Context, params url.Values) error {
	return c.Command(ctx, "/input", params)
}

// Search opens the device search screen with the given keyword.
func (c *Client) Search(ctx context.Context, keyword string) error {
	return c.Command(ctx, "/search/browse", url.Values{"keyword": []string{keyword}})
}
