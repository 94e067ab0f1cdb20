// Package emote defines the data contract shared by catalog providers, the
// resolution engine, and the emote wall. It covers resolved emotes and the
// typed segments a chat message is split into.
package emote

// ProviderKind identifies the external source an emote was resolved from.
type ProviderKind string

// Supported provider kinds.
const (
	ProviderNative  ProviderKind = "twitch"
	ProviderBTTV    ProviderKind = "bttv"
	ProviderFFZ     ProviderKind = "ffz"
	ProviderSevenTV ProviderKind = "7tv"
)

// Data describes a single emote as resolved from a provider catalog.
// Values are immutable once returned by a provider.
type Data struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	URL      string       `json:"url"`
	Provider ProviderKind `json:"provider"`
	Animated bool         `json:"animated"`
}

// SegmentKind discriminates the variant stored in a Segment.
type SegmentKind string

// Supported segment kinds.
const (
	SegmentText    SegmentKind = "text"
	SegmentEmote   SegmentKind = "emote"
	SegmentMention SegmentKind = "mention"
	SegmentLink    SegmentKind = "link"
)

// MentionData carries the user referenced by a mention segment.
type MentionData struct {
	Username string `json:"username"`
}

// LinkData carries the target of a link segment.
type LinkData struct {
	URL string `json:"url"`
}

// Segment is one contiguous piece of a parsed message. Exactly one of the
// data pointers is set for non-text kinds; text segments carry none.
type Segment struct {
	Kind    SegmentKind  `json:"kind"`
	Content string       `json:"content"`
	Emote   *Data        `json:"emote,omitempty"`
	Mention *MentionData `json:"mention,omitempty"`
	Link    *LinkData    `json:"link,omitempty"`
}

// NewTextSegment creates a text segment.
func NewTextSegment(content string) Segment {
	return Segment{Kind: SegmentText, Content: content}
}

// NewEmoteSegment creates an emote segment for the given token.
func NewEmoteSegment(token string, data Data) Segment {
	return Segment{Kind: SegmentEmote, Content: token, Emote: &data}
}

// IsText reports whether the segment is plain text.
func (s Segment) IsText() bool {
	return s.Kind == SegmentText
}

// ParsedMessage is the ordered result of resolving a chat message.
type ParsedMessage struct {
	Segments []Segment `json:"segments"`
	// Emotes lists the data of every emote segment, in the order the
	// resolution engine found them.
	Emotes []Data `json:"emotes"`
}

// Text reconstructs the original message from the segment contents.
func (p ParsedMessage) Text() string {
	n := 0
	for _, s := range p.Segments {
		n += len(s.Content)
	}
	buf := make([]byte, 0, n)
	for _, s := range p.Segments {
		buf = append(buf, s.Content...)
	}
	return string(buf)
}

// HasEmotes reports whether at least one emote was resolved.
func (p ParsedMessage) HasEmotes() bool {
	return len(p.Emotes) > 0
}
