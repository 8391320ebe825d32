package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"go2tv.app/rokucast/device"
	"go2tv.app/rokucast/ecp"
	"go2tv.app/rokucast/utils"
)

type commandClient interface {
	Keypress(ctx context.Context, key string) error
	Launch(ctx context.Context, appID string, params url.Values) error
	Input(ctx context.Context, params url.Values) error
	Search(ctx context.Context, keyword string) error
	Apps(ctx context.Context) ([]ecp.App, error)
}

type refresher interface {
	ForceRefresh(ctx context.Context) (*device.State, error)
}

// Dispatcher translates one high-level intent into correctly
// sequenced protocol calls. It never retries; protocol errors
// propagate to the caller verbatim.
type Dispatcher struct {
	client      commandClient
	coordinator refresher

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// New returns a Dispatcher. The coordinator may be nil, in which case
// commands skip the follow-up refresh.
func New(client commandClient, coordinator refresher) *Dispatcher {
	return &Dispatcher{
		client:      client,
		coordinator: coordinator,
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput
// is set.
func (d *Dispatcher) Log() *zerolog.Logger {
	if d.LogOutput != nil {
		d.initLogOnce.Do(func() {
			d.Logger = zerolog.New(d.LogOutput).With().Timestamp().Logger()
		})
	}
	return &d.Logger
}

// requestRefresh pulls fresh state after a command so dependent state
// reflects the action promptly. Refresh failures are the refresh
// loop's concern, not the command's.
func (d *Dispatcher) requestRefresh(ctx context.Context) {
	if d.coordinator == nil {
		return
	}

	if _, err := d.coordinator.ForceRefresh(ctx); err != nil {
		d.Log().Debug().Err(err).Msg("post-command refresh failed")
	}
}

// Keypress emulates a single remote key press.
func (d *Dispatcher) Keypress(ctx context.Context, key string) error {
	if err := d.client.Keypress(ctx, key); err != nil {
		return err
	}

	d.requestRefresh(ctx)

	return nil
}

// Launch starts an application by its identifier.
func (d *Dispatcher) Launch(ctx context.Context, appID string) error {
	d.Log().Info().Str("AppID", appID).Msg("launching app")

	if err := d.client.Launch(ctx, appID, nil); err != nil {
		return err
	}

	d.requestRefresh(ctx)

	return nil
}

// PlayContent launches deep-linked content from a composite
// "appId,contentId[,key=value...]" identifier. Malformed identifiers
// fail before any network call.
func (d *Dispatcher) PlayContent(ctx context.Context, ref string) error {
	parsed, err := ParseContentReference(ref)
	if err != nil {
		return err
	}

	opts, err := parsed.Options()
	if err != nil {
		return err
	}

	d.Log().Info().Str("AppID", parsed.AppID).Str("ContentID", parsed.ContentID).Str("MediaType", opts.MediaType).Msg("launching app with deep link")

	if err := d.client.Launch(ctx, parsed.AppID, parsed.Values()); err != nil {
		return err
	}

	d.requestRefresh(ctx)

	return nil
}

// PlayURL plays a direct media URL through the generic input
// endpoint, with a MIME-type hint derived from the URL's extension.
func (d *Dispatcher) PlayURL(ctx context.Context, mediaURL string) error {
	mediaType, ext, err := utils.MimeFromURL(mediaURL)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("u", mediaURL)

	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		params.Set("t", "a")
		params.Set("songName", utils.DisplayName(mediaURL))
		params.Set("songFormat", ext)
	case strings.HasPrefix(mediaType, "image/"):
		params.Set("t", "p")
		params.Set("photoName", utils.DisplayName(mediaURL))
		params.Set("photoFormat", ext)
	default:
		params.Set("t", "v")
		params.Set("videoName", utils.DisplayName(mediaURL))
		params.Set("videoFormat", ext)
	}

	d.Log().Info().Str("URL", mediaURL).Str("MediaType", mediaType).Msg("playing media URL")

	if err := d.client.Input(ctx, params); err != nil {
		return err
	}

	d.requestRefresh(ctx)

	return nil
}

// Apps returns the installed applications in the order the device
// reports them. The list is rebuilt on every call - installed-app
// lists are small and infrequently queried.
func (d *Dispatcher) Apps(ctx context.Context) ([]ecp.App, error) {
	return d.client.Apps(ctx)
}

// Search opens the device search screen with the given keyword.
func (d *Dispatcher) Search(ctx context.Context, keyword string) error {
	if keyword == "" {
		return fmt.Errorf("search: empty keyword")
	}

	return d.client.Search(ctx, keyword)
}
