package sonos

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a stateless facade over a node-sonos-http-api server.
// It holds only the base URL; every query re-fetches from the server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Endpoint paths relative to the base URL. Room-scoped actions are appended
// after the lowercased, percent-encoded room segment.
const (
	epZones       = "zones"
	epServices    = "services/all"
	epServiceRoot = "services" // bare root, used only by the connectivity probe
	epState       = "state"
	epFavorite    = "favorite"
	epFavorites   = "favorites"
	epPlaylist    = "playlist"
	epPlaylists   = "playlists"
	epPlay        = "play"
	epPause       = "pause"
	epToggle      = "playpause"
	epNext        = "next"
	epPrevious    = "previous"
	epVolume      = "volume"
	epGroupVolume = "groupvolume"
	epAddPlayer   = "add"
	epUngroup     = "ungroup"
)

// NewClient creates a controller for the Sonos HTTP API server at baseURL.
// A missing trailing slash is added.
func NewClient(baseURL string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// systemURL builds the URL for an action not scoped to a room.
func (c *Client) systemURL(action string) string {
	return c.baseURL + action
}

// roomURL builds the URL for a room-scoped action. The room name is
// lowercased before encoding (the server requires lowercase room segments);
// each parameter is percent-encoded independently.
func (c *Client) roomURL(room, action string, params ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(url.PathEscape(strings.ToLower(room)))
	b.WriteString("/")
	b.WriteString(action)
	for _, p := range params {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// getJSON issues a GET and decodes the JSON response into v.
func (c *Client) getJSON(rawURL string, v interface{}) error {
	body, err := c.getRaw(rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// getRaw issues a GET and returns the response body.
func (c *Client) getRaw(rawURL string) ([]byte, error) {
	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("sonos API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sonos API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// statusResponse is the `{status}` body returned by control endpoints.
type statusResponse struct {
	Status string `json:"status"`
}

// Service is one entry of the music service catalog.
type Service struct {
	ID int `json:"id"`
}

// ZoneMember is a single room inside a zone.
type ZoneMember struct {
	RoomName string `json:"roomName"`
}

// Zone is a remote-reported grouping unit: a coordinator plus its members.
// A room that plays alone is reported as a singleton zone.
type Zone struct {
	Coordinator ZoneMember   `json:"coordinator"`
	Members     []ZoneMember `json:"members"`
}

// IsConnected reports whether the controller can reach the server. The bare
// services endpoint answers {"status": "success"} when the server is up.
func (c *Client) IsConnected() bool {
	var resp statusResponse
	if err := c.getJSON(c.systemURL(epServiceRoot), &resp); err != nil {
		return false
	}
	return resp.Status == "success"
}

// GetServices returns the catalog of supported music services keyed by
// display name. Not every service is necessarily in use on the system.
func (c *Client) GetServices() (map[string]Service, error) {
	var services map[string]Service
	if err := c.getJSON(c.systemURL(epServices), &services); err != nil {
		return nil, err
	}
	return services, nil
}

// GetZones returns the system's zones as reported by the server.
func (c *Client) GetZones() ([]Zone, error) {
	var zones []Zone
	if err := c.getJSON(c.systemURL(epZones), &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// GetRooms returns the names of all rooms in the system, in server order.
func (c *Client) GetRooms() ([]string, error) {
	zones, err := c.GetZones()
	if err != nil {
		return nil, err
	}
	var rooms []string
	for _, z := range zones {
		for _, m := range z.Members {
			rooms = append(rooms, m.RoomName)
		}
	}
	return rooms, nil
}

// GetGroups returns one room-name list per zone, in server order.
func (c *Client) GetGroups() ([][]string, error) {
	zones, err := c.GetZones()
	if err != nil {
		return nil, err
	}
	groups := make([][]string, 0, len(zones))
	for _, z := range zones {
		group := make([]string, 0, len(z.Members))
		for _, m := range z.Members {
			group = append(group, m.RoomName)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// GetFavorites returns the names of favorited stations, playlists, etc.
func (c *Client) GetFavorites() ([]string, error) {
	var favorites []string
	if err := c.getJSON(c.systemURL(epFavorites), &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

// GetPlaylists returns the names of the system's Sonos playlists.
func (c *Client) GetPlaylists() ([]string, error) {
	var playlists []string
	if err := c.getJSON(c.systemURL(epPlaylists), &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}
