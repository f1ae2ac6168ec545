package sonos

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
)

func TestControlEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) (string, error)
		wantPath string
	}{
		{"play", func(c *Client) (string, error) { return c.Play("Kitchen") }, "/kitchen/play"},
		{"pause", func(c *Client) (string, error) { return c.Pause("Kitchen") }, "/kitchen/pause"},
		{"toggle", func(c *Client) (string, error) { return c.Toggle("Kitchen") }, "/kitchen/playpause"},
		{"next", func(c *Client) (string, error) { return c.Next("Kitchen") }, "/kitchen/next"},
		{"previous", func(c *Client) (string, error) { return c.Previous("Kitchen") }, "/kitchen/previous"},
		{"room volume", func(c *Client) (string, error) { return c.SetRoomVolume("Kitchen", 25) }, "/kitchen/volume/25"},
		{"group volume", func(c *Client) (string, error) { return c.SetGroupVolume("Kitchen", 40) }, "/kitchen/groupvolume/40"},
		{"favorite", func(c *Client) (string, error) { return c.PlayFavorite("Morning Jazz", "Kitchen") }, "/kitchen/favorite/Morning Jazz"},
		{"playlist", func(c *Client) (string, error) { return c.PlayPlaylist("Dinner Party", "Kitchen") }, "/kitchen/playlist/Dinner Party"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Write([]byte(`{"status": "success"}`))
			})
			status, err := tt.call(c)
			if err != nil {
				t.Fatalf("call error: %v", err)
			}
			if status != "success" {
				t.Errorf("status = %q, want success", status)
			}
			if gotPath != tt.wantPath {
				t.Errorf("request path = %q, want %q", gotPath, tt.wantPath)
			}
		})
	}
}

// togglingServer flips between PLAYING and PAUSED_PLAYBACK on every
// playpause request, mimicking the real server.
type togglingServer struct {
	mu      sync.Mutex
	playing bool
}

func (s *togglingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/playpause"):
		s.playing = !s.playing
		w.Write([]byte(`{"status": "success"}`))
	case strings.HasSuffix(r.URL.Path, "/state"):
		state := "PAUSED_PLAYBACK"
		if s.playing {
			state = "PLAYING"
		}
		fmt.Fprintf(w, `{"playbackState": %q}`, state)
	default:
		http.NotFound(w, r)
	}
}

func TestToggleFlipsPlaybackState(t *testing.T) {
	srv := &togglingServer{playing: true}
	c, _ := newTestServer(t, srv.ServeHTTP)

	assertState := func(want string) {
		t.Helper()
		state, err := c.GetPlaybackState("Kitchen")
		if err != nil {
			t.Fatalf("GetPlaybackState() error: %v", err)
		}
		if state != want {
			t.Errorf("playback state = %q, want %q", state, want)
		}
	}

	assertState("PLAYING")
	if _, err := c.Toggle("Kitchen"); err != nil {
		t.Fatalf("Toggle() error: %v", err)
	}
	assertState("PAUSED_PLAYBACK")
	if _, err := c.Toggle("Kitchen"); err != nil {
		t.Fatalf("Toggle() error: %v", err)
	}
	assertState("PLAYING")
}

func TestPerformActionServerError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": "error"}`, http.StatusInternalServerError)
	})
	_, err := c.Play("Kitchen")
	if err == nil {
		t.Fatal("Play() expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %q, want status code included", err)
	}
}
