package main

// First-party modules compiled into the binary.
import (
	_ "github.com/flemzord/emotewall/internal/gateway"
	_ "github.com/flemzord/emotewall/internal/overlay"
	_ "github.com/flemzord/emotewall/modules/catalog/bttv"
	_ "github.com/flemzord/emotewall/modules/catalog/ffz"
	_ "github.com/flemzord/emotewall/modules/catalog/seventv"
	_ "github.com/flemzord/emotewall/modules/catalog/twitch"
	_ "github.com/flemzord/emotewall/modules/channel/twitch"
	_ "github.com/flemzord/emotewall/modules/store/sqlite"
)
