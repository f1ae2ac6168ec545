package sonos

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

// newTestServer returns a client pointed at a stub Sonos HTTP API server
// built from the given handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL), srv
}

// zonesJSON is a two-zone topology: Kitchen coordinating Office, plus a
// standalone Bedroom.
const zonesJSON = `[
	{"coordinator": {"roomName": "Kitchen"},
	 "members": [{"roomName": "Kitchen"}, {"roomName": "Office"}]},
	{"coordinator": {"roomName": "Bedroom"},
	 "members": [{"roomName": "Bedroom"}]}
]`

func TestNewClientAddsTrailingSlash(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"without slash", "http://localhost:5005", "http://localhost:5005/"},
		{"with slash", "http://localhost:5005/", "http://localhost:5005/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewClient(tt.baseURL).BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoomURL(t *testing.T) {
	c := NewClient("http://example.com/")

	tests := []struct {
		name   string
		room   string
		action string
		params []string
		want   string
	}{
		{
			name:   "simple room",
			room:   "Kitchen",
			action: "play",
			want:   "http://example.com/kitchen/play",
		},
		{
			name:   "room with space",
			room:   "Living Room",
			action: "pause",
			want:   "http://example.com/living%20room/pause",
		},
		{
			name:   "volume parameter",
			room:   "Office",
			action: "volume",
			params: []string{"25"},
			want:   "http://example.com/office/volume/25",
		},
		{
			name:   "favorite with slash in name",
			room:   "Office",
			action: "favorite",
			params: []string{"Jazz/Chill"},
			want:   "http://example.com/office/favorite/Jazz%2FChill",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.roomURL(tt.room, tt.action, tt.params...); got != tt.want {
				t.Errorf("roomURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsConnected(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "server up",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/services" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(`{"status": "success"}`))
			},
			want: true,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: false,
		},
		{
			name: "unexpected body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "degraded"}`))
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, tt.handler)
			if got := c.IsConnected(); got != tt.want {
				t.Errorf("IsConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsConnectedUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(srv.URL)
	srv.Close()
	if c.IsConnected() {
		t.Error("IsConnected() = true for closed server, want false")
	}
}

func zonesHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(zonesJSON))
	}
}

func TestGetRooms(t *testing.T) {
	c, _ := newTestServer(t, zonesHandler(t))
	rooms, err := c.GetRooms()
	if err != nil {
		t.Fatalf("GetRooms() error: %v", err)
	}
	want := []string{"Kitchen", "Office", "Bedroom"}
	if !reflect.DeepEqual(rooms, want) {
		t.Errorf("GetRooms() = %v, want %v", rooms, want)
	}
}

func TestGetGroups(t *testing.T) {
	c, _ := newTestServer(t, zonesHandler(t))
	groups, err := c.GetGroups()
	if err != nil {
		t.Fatalf("GetGroups() error: %v", err)
	}
	want := [][]string{{"Kitchen", "Office"}, {"Bedroom"}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("GetGroups() = %v, want %v", groups, want)
	}
}

func TestGetServices(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/all" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"Pandora": {"id": 9}, "Spotify": {"id": 12}}`))
	})
	services, err := c.GetServices()
	if err != nil {
		t.Fatalf("GetServices() error: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("GetServices() returned %d entries, want 2", len(services))
	}
	if services["Pandora"].ID != 9 {
		t.Errorf("Pandora ID = %d, want 9", services["Pandora"].ID)
	}
}

func TestGetFavorites(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/favorites" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`["Morning Jazz", "Discover Weekly"]`))
	})
	favorites, err := c.GetFavorites()
	if err != nil {
		t.Fatalf("GetFavorites() error: %v", err)
	}
	want := []string{"Morning Jazz", "Discover Weekly"}
	if !reflect.DeepEqual(favorites, want) {
		t.Errorf("GetFavorites() = %v, want %v", favorites, want)
	}
}

func TestGetPlaylists(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlists" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`["Dinner Party"]`))
	})
	playlists, err := c.GetPlaylists()
	if err != nil {
		t.Fatalf("GetPlaylists() error: %v", err)
	}
	if len(playlists) != 1 || playlists[0] != "Dinner Party" {
		t.Errorf("GetPlaylists() = %v, want [Dinner Party]", playlists)
	}
}

func TestGetRawServerError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "zone unavailable", http.StatusInternalServerError)
	})
	_, err := c.GetZones()
	if err == nil {
		t.Fatal("GetZones() expected error for 500 response")
	}
}
