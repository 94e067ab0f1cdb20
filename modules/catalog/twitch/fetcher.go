package twitch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

const defaultTemplate = "https://static-cdn.jtvnw.net/emoticons/v2/{{id}}/{{format}}/{{theme_mode}}/{{scale}}"

type helixEmote struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Format    []string `json:"format"`
	Scale     []string `json:"scale"`
	ThemeMode []string `json:"theme_mode"`
}

type helixResponse struct {
	Data     []helixEmote `json:"data"`
	Template string       `json:"template"`
}

// Fetcher loads emotes from the Twitch Helix API. Scopes are broadcaster
// ids. Without credentials every fetch returns no emotes.
type Fetcher struct {
	Client   *http.Client
	BaseURL  string
	ClientID string
	Token    string
	Logger   *slog.Logger

	warnOnce sync.Once
}

var _ catalog.Fetcher = (*Fetcher)(nil)

// FetchGlobal implements catalog.Fetcher.
func (f *Fetcher) FetchGlobal(ctx context.Context) ([]emote.Data, error) {
	return f.fetch(ctx, "/helix/chat/emotes/global")
}

// FetchScoped implements catalog.Fetcher.
func (f *Fetcher) FetchScoped(ctx context.Context, scope string) ([]emote.Data, error) {
	return f.fetch(ctx, "/helix/chat/emotes?broadcaster_id="+url.QueryEscape(scope))
}

func (f *Fetcher) fetch(ctx context.Context, path string) ([]emote.Data, error) {
	if f.ClientID == "" || f.Token == "" {
		f.warnOnce.Do(func() {
			if f.Logger != nil {
				f.Logger.Info("twitch native emotes disabled: client_id and token not configured")
			}
		})
		return nil, nil
	}

	header := http.Header{}
	header.Set("Client-Id", f.ClientID)
	header.Set("Authorization", "Bearer "+f.Token)

	resp, err := catalog.GetJSON[helixResponse](ctx, f.Client, f.BaseURL+path, header)
	if err != nil {
		return nil, err
	}
	tmpl := resp.Template
	if tmpl == "" {
		tmpl = defaultTemplate
	}

	out := make([]emote.Data, 0, len(resp.Data))
	for _, e := range resp.Data {
		if e.ID == "" || e.Name == "" {
			continue
		}
		animated := slices.Contains(e.Format, "animated")
		out = append(out, emote.Data{
			ID:       e.ID,
			Name:     e.Name,
			URL:      imageURL(tmpl, e, animated),
			Provider: emote.ProviderNative,
			Animated: animated,
		})
	}
	return out, nil
}

// imageURL fills the Helix CDN template, preferring the animated format,
// the dark theme and the 3.0 scale when the emote offers them.
func imageURL(tmpl string, e helixEmote, animated bool) string {
	format := "static"
	if animated {
		format = "animated"
	}
	return strings.NewReplacer(
		"{{id}}", e.ID,
		"{{format}}", format,
		"{{theme_mode}}", pick(e.ThemeMode, "dark"),
		"{{scale}}", pick(e.Scale, "3.0"),
	).Replace(tmpl)
}

func pick(options []string, want string) string {
	if len(options) == 0 || slices.Contains(options, want) {
		return want
	}
	return options[len(options)-1]
}
