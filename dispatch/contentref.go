package dispatch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// ErrInvalidContentReference - the composite content identifier is
// missing the application id or the content id.
var ErrInvalidContentReference = errors.New("dispatch: invalid content reference")

// ContentReference is the parsed form of the composite
// "appId,contentId[,key=value...]" identifier callers use for
// deep-link playback. It is built fresh per command and never
// persisted.
type ContentReference struct {
	AppID     string
	ContentID string
	Params    url.Values
}

// LaunchOptions carries the extra parameters the launch endpoint
// understands natively. Unknown parameters are still forwarded as
// query values; this struct only exists for the ones we inspect.
type LaunchOptions struct {
	MediaType string `mapstructure:"mediaType"`
}

// ParseContentReference parses the composite identifier. The grammar
// must stay exactly as existing automations expect it: split on
// commas, first token the application id, second the content id, and
// any later token containing "=" an extra query parameter.
func ParseContentReference(s string) (*ContentReference, error) {
	tokens := strings.Split(s, ",")
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentReference, s)
	}

	appID := strings.TrimSpace(tokens[0])
	contentID := strings.TrimSpace(tokens[1])

	if appID == "" || contentID == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentReference, s)
	}

	ref := &ContentReference{
		AppID:     appID,
		ContentID: contentID,
		Params:    url.Values{},
	}

	for _, token := range tokens[2:] {
		key, value, found := strings.Cut(strings.TrimSpace(token), "=")
		if !found || key == "" {
			continue
		}
		ref.Params.Add(key, value)
	}

	return ref, nil
}

// Values returns the query parameters for the launch call: the
// content id plus any extra parameters from the identifier.
func (r *ContentReference) Values() url.Values {
	values := url.Values{}
	values.Set("contentId", r.ContentID)

	for key, vals := range r.Params {
		for _, v := range vals {
			values.Add(key, v)
		}
	}

	return values
}

// Options decodes the recognized extra parameters into a typed
// struct.
func (r *ContentReference) Options() (*LaunchOptions, error) {
	flat := make(map[string]string, len(r.Params))
	for key := range r.Params {
		flat[key] = r.Params.Get(key)
	}

	opts := new(LaunchOptions)
	if err := mapstructure.Decode(flat, opts); err != nil {
		return nil, fmt.Errorf("contentReference options decode error: %w", err)
	}

	return opts, nil
}
