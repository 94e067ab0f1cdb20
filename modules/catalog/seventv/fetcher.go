package seventv

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

type activeEmote struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Animated bool `json:"animated"`
	} `json:"data"`
}

type emoteSet struct {
	ID     string        `json:"id"`
	Emotes []activeEmote `json:"emotes"`
}

type userResponse struct {
	EmoteSet *emoteSet `json:"emote_set"`
}

// Fetcher loads 7TV catalogs. Scopes are Twitch user ids.
type Fetcher struct {
	Client  *http.Client
	BaseURL string
	CDNURL  string
}

var _ catalog.Fetcher = (*Fetcher)(nil)

// FetchGlobal implements catalog.Fetcher.
func (f *Fetcher) FetchGlobal(ctx context.Context) ([]emote.Data, error) {
	set, err := catalog.GetJSON[emoteSet](ctx, f.Client, f.BaseURL+"/v3/emote-sets/global", nil)
	if err != nil {
		return nil, err
	}
	return f.convert(set.Emotes), nil
}

// FetchScoped implements catalog.Fetcher. It resolves the user's active
// emote set, then loads the set unless the user response already carries
// its emotes. Users without a 7TV account or active set have no emotes.
func (f *Fetcher) FetchScoped(ctx context.Context, scope string) ([]emote.Data, error) {
	user, err := catalog.GetJSON[userResponse](ctx, f.Client, f.BaseURL+"/v3/users/twitch/"+url.PathEscape(scope), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if user.EmoteSet == nil || user.EmoteSet.ID == "" {
		return nil, nil
	}
	if len(user.EmoteSet.Emotes) > 0 {
		return f.convert(user.EmoteSet.Emotes), nil
	}

	set, err := catalog.GetJSON[emoteSet](ctx, f.Client, f.BaseURL+"/v3/emote-sets/"+url.PathEscape(user.EmoteSet.ID), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return f.convert(set.Emotes), nil
}

func (f *Fetcher) convert(in []activeEmote) []emote.Data {
	out := make([]emote.Data, 0, len(in))
	for _, e := range in {
		if e.ID == "" || e.Name == "" {
			continue
		}
		out = append(out, emote.Data{
			ID:       e.ID,
			Name:     e.Name,
			URL:      strings.TrimSuffix(f.CDNURL, "/") + "/emote/" + e.ID + "/4x.webp",
			Provider: emote.ProviderSevenTV,
			Animated: e.Data.Animated,
		})
	}
	return out
}

func isNotFound(err error) bool {
	var se *catalog.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
