package sonos

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrNoSID indicates the sid parameter appeared zero or multiple times in a
// track URI.
var ErrNoSID = errors.New(`"sid" parameter not found in track URI`)

// ErrUnknownService indicates a sid was present but no catalog entry matched.
var ErrUnknownService = errors.New("service id not in catalog")

var sidPattern = regexp.MustCompile(`sid=(\d+)`)

// Track describes a current or queued track in a room. Service is derived
// locally from the track URI's embedded service ID; everything else comes
// straight from the server's state response.
type Track struct {
	Artist      string `json:"artist"`
	Title       string `json:"title"`
	Album       string `json:"album"`
	AlbumArtURI string `json:"albumArtUri"`
	Room        string `json:"room"`
	Type        string `json:"type"`
	Service     string `json:"service"`
	Station     string `json:"station"`
	TrackURI    string `json:"trackUri"`
}

// trackInfo is the server's shape for currentTrack / nextTrack.
type trackInfo struct {
	Artist              string `json:"artist"`
	Title               string `json:"title"`
	Album               string `json:"album"`
	AbsoluteAlbumArtURI string `json:"absoluteAlbumArtUri"`
	URI                 string `json:"uri"`
	Type                string `json:"type"`
	StationName         string `json:"stationName"`
}

// roomState is the server's response for <room>/state.
type roomState struct {
	PlaybackState string     `json:"playbackState"`
	CurrentTrack  *trackInfo `json:"currentTrack"`
	NextTrack     *trackInfo `json:"nextTrack"`
}

func (c *Client) getState(room string) (*roomState, error) {
	var state roomState
	if err := c.getJSON(c.roomURL(room, epState), &state); err != nil {
		return nil, fmt.Errorf(`failed to retrieve state of room %q: %w`, room, err)
	}
	return &state, nil
}

// GetPlaybackState returns the current playback state of room, e.g. PLAYING
// or PAUSED_PLAYBACK.
func (c *Client) GetPlaybackState(room string) (string, error) {
	state, err := c.getState(room)
	if err != nil {
		return "", err
	}
	return state.PlaybackState, nil
}

// GetCurrentTrack returns the track currently playing in room, or nil if
// nothing is playing. If the music service can't be resolved the track is
// still returned, with the failure recorded in its Service field.
func (c *Client) GetCurrentTrack(room string) (*Track, error) {
	state, err := c.getState(room)
	if err != nil {
		return nil, err
	}
	if state.CurrentTrack == nil {
		return nil, nil
	}
	return c.buildTrack(state.CurrentTrack, room), nil
}

// GetNextTrack returns the next queued track in room. Some services don't
// report next-track information; an absent track or an empty title both
// yield nil.
func (c *Client) GetNextTrack(room string) (*Track, error) {
	state, err := c.getState(room)
	if err != nil {
		return nil, err
	}
	if state.NextTrack == nil || state.NextTrack.Title == "" {
		return nil, nil
	}
	return c.buildTrack(state.NextTrack, room), nil
}

// buildTrack converts a server track payload, resolving the music service.
// Track metadata is worth more than service attribution, so a resolution
// failure is embedded in the Service field instead of discarding the track.
func (c *Client) buildTrack(info *trackInfo, room string) *Track {
	service, err := c.serviceFromTrackURI(info.URI)
	if err != nil {
		service = fmt.Sprintf("error: unable to determine service: %v", err)
	}
	return &Track{
		Artist:      info.Artist,
		Title:       info.Title,
		Album:       info.Album,
		AlbumArtURI: info.AbsoluteAlbumArtURI,
		Room:        room,
		Type:        info.Type,
		Service:     service,
		Station:     info.StationName,
		TrackURI:    info.URI,
	}
}

// serviceFromTrackURI resolves the music service name embedded in a track
// URI. The catalog is fetched fresh on every call; the URI must contain the
// sid parameter exactly once.
func (c *Client) serviceFromTrackURI(uri string) (string, error) {
	catalog, err := c.GetServices()
	if err != nil {
		return "", err
	}

	byID := make(map[int]string, len(catalog))
	for name, svc := range catalog {
		byID[svc.ID] = name
	}

	matches := sidPattern.FindAllStringSubmatch(uri, -1)
	if len(matches) != 1 {
		return "", ErrNoSID
	}

	id, err := strconv.Atoi(matches[0][1])
	if err != nil {
		return "", ErrNoSID
	}

	name, ok := byID[id]
	if !ok {
		return "", fmt.Errorf("%w: sid=%d", ErrUnknownService, id)
	}
	return name, nil
}
