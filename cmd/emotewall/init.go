package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/theme"
)

// setup holds the answers collected by the init wizard.
type setup struct {
	Channels     string
	Theme        string
	Catalogs     []string
	Bind         string
	AdminToken   string
	OverlayToken string
	Cache        bool
}

var catalogModules = []huh.Option[string]{
	huh.NewOption("BetterTTV", "catalog.bttv").Selected(true),
	huh.NewOption("FrankerFaceZ", "catalog.ffz").Selected(true),
	huh.NewOption("7TV", "catalog.7tv").Selected(true),
	huh.NewOption("Twitch native (needs a Helix client id and token)", "catalog.twitch"),
}

func initCmd() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			s, err := askSetup()
			if err != nil {
				return err
			}
			data, err := renderConfig(s)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\nOverlay stream: ws://%s/ws/overlay?token=%s\n", path, s.Bind, s.OverlayToken)
			if slices.Contains(s.Catalogs, "catalog.twitch") {
				fmt.Fprintf(out, "Set TWITCH_CLIENT_ID and TWITCH_TOKEN in the environment or in %s\n",
					filepath.Join(filepath.Dir(path), config.DotEnvFile))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func askSetup() (setup, error) {
	s := setup{Bind: "127.0.0.1:8080", Theme: "default", Cache: true}

	themeOpts := make([]huh.Option[string], 0)
	for _, t := range theme.Builtin().Themes() {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.ID))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Twitch channels").
				Description("Comma separated, without #").
				Value(&s.Channels).
				Validate(func(v string) error {
					if len(splitList(v)) == 0 {
						return errors.New("at least one channel is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOpts...).
				Value(&s.Theme),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Emote catalogs").
				Options(catalogModules...).
				Value(&s.Catalogs),
			huh.NewConfirm().
				Title("Cache catalogs on disk?").
				Value(&s.Cache),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&s.Bind),
		),
	)
	if err := form.Run(); err != nil {
		return setup{}, err
	}

	var err error
	if s.AdminToken, err = randomToken(); err != nil {
		return setup{}, err
	}
	if s.OverlayToken, err = randomToken(); err != nil {
		return setup{}, err
	}
	return s, nil
}

// renderConfig turns wizard answers into a configuration document.
func renderConfig(s setup) ([]byte, error) {
	channels := splitList(s.Channels)
	if len(channels) == 0 {
		return nil, errors.New("init: no channels")
	}

	modules := map[string]any{
		"channel.twitch": map[string]any{"channels": channels},
		"overlay.ws":     map[string]any{"tokens": []string{s.OverlayToken}},
		"gateway.http": map[string]any{
			"bind": s.Bind,
			"auth": map[string]any{"bearer_token": s.AdminToken},
		},
	}
	for _, id := range s.Catalogs {
		if id == "catalog.twitch" {
			modules[id] = map[string]any{
				"client_id": "${TWITCH_CLIENT_ID}",
				"token":     "${TWITCH_TOKEN}",
			}
			continue
		}
		modules[id] = map[string]any{}
	}
	if s.Cache {
		modules["store.sqlite"] = map[string]any{}
	}

	doc := struct {
		Version string         `yaml:"version"`
		Wall    map[string]any `yaml:"wall"`
		Modules map[string]any `yaml:"modules"`
	}{
		Version: "1",
		Wall:    map[string]any{"theme": s.Theme},
		Modules: modules,
	}
	return yaml.Marshal(doc)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "#")
		if part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
