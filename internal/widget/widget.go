package widget

import (
	"fmt"
	"net/url"

	"sonos_control/internal/sonos"
)

// BlockType determines how the host surface renders a block.
type BlockType string

const (
	BlockTypeStack  BlockType = "stack"
	BlockTypeImage  BlockType = "image"
	BlockTypeText   BlockType = "text"
	BlockTypeSpacer BlockType = "spacer"
)

// Block is one node of a widget tree: an image, a text line, a spacer, or a
// stack of child blocks. TapURL deep-links into another app when the block
// is tapped.
type Block struct {
	Type     BlockType `json:"type"`
	Text     string    `json:"text,omitempty"`
	Font     string    `json:"font,omitempty"`
	Size     int       `json:"size,omitempty"`
	Color    string    `json:"color,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty"`
	TapURL   string    `json:"tapUrl,omitempty"`
	Vertical bool      `json:"vertical,omitempty"`
	Children []*Block  `json:"children,omitempty"`
}

// Options style a now-playing widget.
type Options struct {
	TextColor       string
	BackgroundColor string
	// ToggleShortcut is the name of the host shortcut that toggles playback;
	// tapping the text column runs it with the room as input.
	ToggleShortcut string
}

// DefaultOptions matches the stock yellow now-playing widget.
func DefaultOptions() Options {
	return Options{
		TextColor:       "#555555",
		BackgroundColor: "#ffd60a",
		ToggleShortcut:  "Toggle Sonos Playback",
	}
}

// toggleTapURL builds the shortcut deep link that toggles playback in room.
func toggleTapURL(shortcut, room string) string {
	return fmt.Sprintf("shortcuts://run-shortcut?name=%s&input=%s",
		url.QueryEscape(shortcut), url.QueryEscape(room))
}

// NowPlaying builds the medium now-playing widget for a track: album art on
// the left, title/artist/album and "room: service" on the right. A nil track
// produces a fallback block so a failed fetch never breaks rendering.
func NowPlaying(track *sonos.Track, room string, opts Options) *Block {
	if track == nil {
		return Fallback(room, opts)
	}

	art := &Block{
		Type:     BlockTypeImage,
		ImageURL: track.AlbumArtURI,
		Size:     100,
		TapURL:   "sonos://",
	}

	details := &Block{
		Type:     BlockTypeStack,
		Vertical: true,
		TapURL:   toggleTapURL(opts.ToggleShortcut, room),
		Children: []*Block{
			{Type: BlockTypeSpacer},
			{Type: BlockTypeText, Text: track.Title, Font: "semibold", Size: 18, Color: opts.TextColor},
			{Type: BlockTypeText, Text: track.Artist, Font: "regular", Size: 18, Color: opts.TextColor},
			{Type: BlockTypeSpacer},
			{Type: BlockTypeText, Text: track.Album, Font: "regular", Size: 15, Color: opts.TextColor},
			{Type: BlockTypeText, Text: fmt.Sprintf("%s: %s", room, track.Service), Font: "regular", Size: 15, Color: opts.TextColor},
			{Type: BlockTypeSpacer},
		},
	}

	return &Block{
		Type:     BlockTypeStack,
		Color:    opts.BackgroundColor,
		Children: []*Block{art, details},
	}
}

// NowPlayingSmall builds the small now-playing widget: artwork with the
// title and room stacked underneath.
func NowPlayingSmall(track *sonos.Track, room string, opts Options) *Block {
	if track == nil {
		return Fallback(room, opts)
	}

	return &Block{
		Type:     BlockTypeStack,
		Color:    opts.BackgroundColor,
		Vertical: true,
		TapURL:   toggleTapURL(opts.ToggleShortcut, room),
		Children: []*Block{
			{Type: BlockTypeImage, ImageURL: track.AlbumArtURI, Size: 80, TapURL: "sonos://"},
			{Type: BlockTypeText, Text: track.Title, Font: "semibold", Size: 14, Color: opts.TextColor},
			{Type: BlockTypeText, Text: room, Font: "regular", Size: 12, Color: opts.TextColor},
		},
	}
}

// Fallback is rendered when no track is available for room.
func Fallback(room string, opts Options) *Block {
	return &Block{
		Type:     BlockTypeStack,
		Color:    opts.BackgroundColor,
		Vertical: true,
		Children: []*Block{
			{Type: BlockTypeText, Text: "Nothing playing", Font: "semibold", Size: 16, Color: opts.TextColor},
			{Type: BlockTypeText, Text: room, Font: "regular", Size: 13, Color: opts.TextColor},
		},
	}
}
