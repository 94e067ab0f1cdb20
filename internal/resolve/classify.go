package resolve

import (
	"net/url"
	"strings"

	"github.com/flemzord/emotewall/pkg/emote"
)

const trailingPunct = ".,!?:;)"

func classifyMention(tok string) (emote.Segment, bool) {
	if len(tok) < 2 || tok[0] != '@' {
		return emote.Segment{}, false
	}
	name := strings.TrimRight(tok[1:], trailingPunct)
	if name == "" {
		return emote.Segment{}, false
	}
	return emote.Segment{
		Kind:    emote.SegmentMention,
		Content: tok,
		Mention: &emote.MentionData{Username: strings.ToLower(name)},
	}, true
}

func classifyLink(tok string) (emote.Segment, bool) {
	if !strings.HasPrefix(tok, "http://") && !strings.HasPrefix(tok, "https://") {
		return emote.Segment{}, false
	}
	u, err := url.Parse(tok)
	if err != nil || u.Host == "" {
		return emote.Segment{}, false
	}
	return emote.Segment{
		Kind:    emote.SegmentLink,
		Content: tok,
		Link:    &emote.LinkData{URL: u.String()},
	}, true
}
