package bttv

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

// apiEmote is an emote as served by the BTTV cached API.
type apiEmote struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	ImageType string `json:"imageType"`
	Animated  bool   `json:"animated"`
}

// userResponse is the body of /3/cached/users/twitch/{id}.
type userResponse struct {
	ChannelEmotes []apiEmote `json:"channelEmotes"`
	SharedEmotes  []apiEmote `json:"sharedEmotes"`
}

// Fetcher loads BTTV catalogs. Scopes are Twitch user ids.
type Fetcher struct {
	Client  *http.Client
	BaseURL string
	CDNURL  string
}

var _ catalog.Fetcher = (*Fetcher)(nil)

// FetchGlobal implements catalog.Fetcher.
func (f *Fetcher) FetchGlobal(ctx context.Context) ([]emote.Data, error) {
	list, err := catalog.GetJSON[[]apiEmote](ctx, f.Client, f.BaseURL+"/3/cached/emotes/global", nil)
	if err != nil {
		return nil, err
	}
	return f.convert(*list), nil
}

// FetchScoped implements catalog.Fetcher. Channel emotes come before shared
// ones so a channel's own emote wins a name clash. A channel unknown to BTTV
// has no emotes.
func (f *Fetcher) FetchScoped(ctx context.Context, scope string) ([]emote.Data, error) {
	u := f.BaseURL + "/3/cached/users/twitch/" + url.PathEscape(scope)
	resp, err := catalog.GetJSON[userResponse](ctx, f.Client, u, nil)
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	all := make([]apiEmote, 0, len(resp.ChannelEmotes)+len(resp.SharedEmotes))
	all = append(all, resp.ChannelEmotes...)
	all = append(all, resp.SharedEmotes...)
	return f.convert(all), nil
}

func (f *Fetcher) convert(in []apiEmote) []emote.Data {
	out := make([]emote.Data, 0, len(in))
	for _, e := range in {
		if e.ID == "" || e.Code == "" {
			continue
		}
		out = append(out, emote.Data{
			ID:       e.ID,
			Name:     e.Code,
			URL:      strings.TrimSuffix(f.CDNURL, "/") + "/emote/" + e.ID + "/3x",
			Provider: emote.ProviderBTTV,
			Animated: e.Animated || strings.EqualFold(e.ImageType, "gif"),
		})
	}
	return out
}
