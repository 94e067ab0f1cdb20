package ffz

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

type emoticon struct {
	ID   int               `json:"id"`
	Name string            `json:"name"`
	URLs map[string]string `json:"urls"`
	// Animated holds webp URLs for animated emotes, keyed like URLs.
	Animated map[string]string `json:"animated"`
}

type emoteSet struct {
	Emoticons []emoticon `json:"emoticons"`
}

type globalResponse struct {
	DefaultSets []int               `json:"default_sets"`
	Sets        map[string]emoteSet `json:"sets"`
}

type roomResponse struct {
	Room *struct {
		Set int `json:"set"`
	} `json:"room"`
	Sets map[string]emoteSet `json:"sets"`
}

// Fetcher loads FFZ catalogs. Scopes are Twitch room ids.
type Fetcher struct {
	Client  *http.Client
	BaseURL string
}

var _ catalog.Fetcher = (*Fetcher)(nil)

// FetchGlobal implements catalog.Fetcher. Only the default sets are
// global; the others are feature-gated by FFZ.
func (f *Fetcher) FetchGlobal(ctx context.Context) ([]emote.Data, error) {
	resp, err := catalog.GetJSON[globalResponse](ctx, f.Client, f.BaseURL+"/v1/set/global", nil)
	if err != nil {
		return nil, err
	}
	var out []emote.Data
	for _, id := range resp.DefaultSets {
		out = append(out, convert(resp.Sets[strconv.Itoa(id)].Emoticons)...)
	}
	return out, nil
}

// FetchScoped implements catalog.Fetcher. Rooms unknown to FFZ have no
// emotes.
func (f *Fetcher) FetchScoped(ctx context.Context, scope string) ([]emote.Data, error) {
	u := f.BaseURL + "/v1/room/id/" + url.PathEscape(scope)
	resp, err := catalog.GetJSON[roomResponse](ctx, f.Client, u, nil)
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if resp.Room == nil {
		return nil, nil
	}
	return convert(resp.Sets[strconv.Itoa(resp.Room.Set)].Emoticons), nil
}

func convert(in []emoticon) []emote.Data {
	out := make([]emote.Data, 0, len(in))
	for _, e := range in {
		animated := len(e.Animated) > 0
		src := e.URLs
		if animated {
			src = e.Animated
		}
		u := bestURL(src)
		if u == "" || e.Name == "" {
			continue
		}
		out = append(out, emote.Data{
			ID:       strconv.Itoa(e.ID),
			Name:     e.Name,
			URL:      u,
			Provider: emote.ProviderFFZ,
			Animated: animated,
		})
	}
	return out
}

// bestURL picks the largest scale offered (4, then 2, then 1) and makes
// protocol-relative URLs absolute.
func bestURL(urls map[string]string) string {
	for _, scale := range []string{"4", "2", "1"} {
		if u := urls[scale]; u != "" {
			if strings.HasPrefix(u, "//") {
				return "https:" + u
			}
			return u
		}
	}
	return ""
}
