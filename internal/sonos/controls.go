package sonos

import "strconv"

// performAction issues a room-scoped action and returns the server's status
// string, e.g. "success".
func (c *Client) performAction(room, action string, params ...string) (string, error) {
	var resp statusResponse
	if err := c.getJSON(c.roomURL(room, action, params...), &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Play starts playback in room.
func (c *Client) Play(room string) (string, error) {
	return c.performAction(room, epPlay)
}

// Pause pauses playback in room.
func (c *Client) Pause(room string) (string, error) {
	return c.performAction(room, epPause)
}

// Toggle resumes playback if paused, or pauses it if playing.
func (c *Client) Toggle(room string) (string, error) {
	return c.performAction(room, epToggle)
}

// Next skips to the next track in room.
func (c *Client) Next(room string) (string, error) {
	return c.performAction(room, epNext)
}

// Previous returns to the previous track in room.
func (c *Client) Previous(room string) (string, error) {
	return c.performAction(room, epPrevious)
}

// SetRoomVolume sets the volume of room to an absolute percentage (0-100).
func (c *Client) SetRoomVolume(room string, volume int) (string, error) {
	return c.performAction(room, epVolume, strconv.Itoa(volume))
}

// SetGroupVolume sets the volume of the whole group coordinated by room.
func (c *Client) SetGroupVolume(room string, volume int) (string, error) {
	return c.performAction(room, epGroupVolume, strconv.Itoa(volume))
}

// PlayFavorite plays a favorited station, playlist, etc. in room.
func (c *Client) PlayFavorite(favorite, room string) (string, error) {
	return c.performAction(room, epFavorite, favorite)
}

// PlayPlaylist plays a Sonos playlist in room.
func (c *Client) PlayPlaylist(playlist, room string) (string, error) {
	return c.performAction(room, epPlaylist, playlist)
}
