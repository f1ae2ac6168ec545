package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"sonos_control/internal/mqtt"
	"sonos_control/internal/nowplaying"
	"sonos_control/internal/sonos"
	"sonos_control/internal/websocket"
	"sonos_control/internal/widget"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

// quietPaths are endpoints widgets poll frequently and shouldn't spam logs
var quietPaths = map[string]bool{
	"/api/rooms":             true,
	"/api/widget/nowplaying": true,
	"/api/status":            true,
}

// quietPrefixes are path prefixes that shouldn't spam logs
var quietPrefixes = []string{
	"/api/room/",
}

// ConditionalLogger is a middleware that skips logging for certain paths
func ConditionalLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quietPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range quietPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
		}
		middleware.Logger(next).ServeHTTP(w, r)
	})
}

type Config struct {
	Port        string
	SonosAPIURL string
	DefaultRoom string
	// Now-playing poller settings
	NowPlayingRooms    []string
	NowPlayingInterval int // seconds
	// MQTT settings (optional)
	MQTTHost        string
	MQTTPort        int
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
}

var controller *sonos.Client
var wsHub *websocket.Hub
var mqttClient *mqtt.Client
var appConfig Config

func main() {
	// Load .env file if present (for local dev)
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		SonosAPIURL:        getEnv("SONOS_API_URL", "http://localhost:5005/"),
		DefaultRoom:        getEnv("DEFAULT_ROOM", ""),
		NowPlayingRooms:    parseList(getEnv("NOWPLAYING_ROOMS", "")),
		NowPlayingInterval: parseIntEnv("NOWPLAYING_INTERVAL", 10),
		MQTTHost:           getEnv("MQTT_HOST", ""),
		MQTTPort:           parseIntEnv("MQTT_PORT", 1883),
		MQTTUsername:       getEnv("MQTT_USERNAME", ""),
		MQTTPassword:       getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix:    getEnv("MQTT_TOPIC_PREFIX", "sonos"),
	}
	appConfig = cfg

	controller = sonos.NewClient(cfg.SonosAPIURL)
	log.Printf("Sonos controller initialized for %s", controller.BaseURL())
	if !controller.IsConnected() {
		log.Printf("Warning: Sonos HTTP API server at %s is not reachable", controller.BaseURL())
	}

	// Initialize WebSocket hub
	wsHub = websocket.NewHub()
	go wsHub.Run()
	log.Println("WebSocket hub started")

	// Initialize MQTT bridge for room commands
	if cfg.MQTTHost != "" {
		mqttClient = mqtt.NewClient(mqtt.Config{
			Host:        cfg.MQTTHost,
			Port:        cfg.MQTTPort,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			ClientID:    "sonos-control-kiosk",
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		mqttClient.SetCommandHandler(dispatchCommand)

		go func() {
			if err := mqttClient.Connect(); err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
			}
		}()
		log.Printf("MQTT bridge connecting to %s:%d", cfg.MQTTHost, cfg.MQTTPort)
	}

	// Start the now-playing poller
	if len(cfg.NowPlayingRooms) > 0 {
		poller := nowplaying.NewPoller(controller, cfg.NowPlayingRooms,
			time.Duration(cfg.NowPlayingInterval)*time.Second)
		poller.OnTrackChange = func(room string, track *sonos.Track) {
			wsHub.BroadcastNowPlaying(room, track)
			if mqttClient != nil {
				if track != nil {
					mqttClient.PublishNowPlaying(room, track)
				} else {
					mqttClient.PublishNowPlaying(room, nil)
				}
			}
		}
		poller.OnStateChange = func(room, state string) {
			wsHub.BroadcastPlaybackState(room, state)
			if mqttClient != nil {
				mqttClient.PublishPlaybackState(room, state)
			}
		}
		poller.Start()
	}

	r := chi.NewRouter()
	r.Use(ConditionalLogger)
	r.Use(middleware.Compress(5))

	// System queries
	r.Get("/api/status", handleStatus)
	r.Get("/api/rooms", handleGetRooms)
	r.Get("/api/zones", handleGetZones)
	r.Get("/api/groups", handleGetGroups)
	r.Get("/api/services", handleGetServices)
	r.Get("/api/favorites", handleGetFavorites)
	r.Get("/api/playlists", handleGetPlaylists)

	// Room queries
	r.Get("/api/room/{room}/state", handleGetPlaybackState)
	r.Get("/api/room/{room}/track", handleGetCurrentTrack)
	r.Get("/api/room/{room}/next-track", handleGetNextTrack)
	r.Get("/api/room/{room}/group", handleGetRoomGroup)

	// Room controls
	r.Post("/api/room/{room}/play", handleRoomAction(controllerPlay))
	r.Post("/api/room/{room}/pause", handleRoomAction(controllerPause))
	r.Post("/api/room/{room}/toggle", handleRoomAction(controllerToggle))
	r.Post("/api/room/{room}/next", handleRoomAction(controllerNext))
	r.Post("/api/room/{room}/previous", handleRoomAction(controllerPrevious))
	r.Post("/api/room/{room}/volume", handleSetVolume(false))
	r.Post("/api/room/{room}/groupvolume", handleSetVolume(true))
	r.Post("/api/room/{room}/favorite", handlePlayNamed(false))
	r.Post("/api/room/{room}/playlist", handlePlayNamed(true))

	// Group operations
	r.Post("/api/group", handleGroup)
	r.Post("/api/ungroup", handleUngroup)
	r.Post("/api/ungroup-all/{room}", handleUngroupAll)
	r.Post("/api/everywhere/favorite", handleEverywhere(false))
	r.Post("/api/everywhere/playlist", handleEverywhere(true))

	// Widget rendering
	r.Get("/api/widget/nowplaying", handleNowPlayingWidget)
	r.Get("/api/art", handleAlbumArt)

	// WebSocket
	r.Get("/ws", handleWebSocket)

	log.Printf("Server starting on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status string, err error) {
	if err != nil {
		log.Printf("Controller call failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"status": "error: " + err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": status})
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"connected": controller.IsConnected()})
}

func handleGetRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := controller.GetRooms()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, rooms)
}

func handleGetZones(w http.ResponseWriter, r *http.Request) {
	zones, err := controller.GetZones()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, zones)
}

func handleGetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := controller.GetGroups()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, groups)
}

func handleGetServices(w http.ResponseWriter, r *http.Request) {
	services, err := controller.GetServices()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, services)
}

func handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := controller.GetFavorites()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, favorites)
}

func handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := controller.GetPlaylists()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, playlists)
}

func handleGetPlaybackState(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	state, err := controller.GetPlaybackState(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"room": room, "playbackState": state})
}

func handleGetCurrentTrack(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	track, err := controller.GetCurrentTrack(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, track) // null when nothing is playing
}

func handleGetNextTrack(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	track, err := controller.GetNextTrack(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, track)
}

func handleGetRoomGroup(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	members, err := controller.RoomsInGroupInclusive(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, members)
}

// roomAction adapts a controller method to the room-action handler.
type roomAction func(room string) (string, error)

func controllerPlay(room string) (string, error)     { return controller.Play(room) }
func controllerPause(room string) (string, error)    { return controller.Pause(room) }
func controllerToggle(room string) (string, error)   { return controller.Toggle(room) }
func controllerNext(room string) (string, error)     { return controller.Next(room) }
func controllerPrevious(room string) (string, error) { return controller.Previous(room) }

func handleRoomAction(action roomAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		status, err := action(room)
		writeStatus(w, status, err)
	}
}

type setVolumeRequest struct {
	Volume int `json:"volume"`
}

func handleSetVolume(group bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		var req setVolumeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Volume < 0 || req.Volume > 100 {
			http.Error(w, "Volume must be 0-100", http.StatusBadRequest)
			return
		}
		var status string
		var err error
		if group {
			status, err = controller.SetGroupVolume(room, req.Volume)
		} else {
			status, err = controller.SetRoomVolume(room, req.Volume)
		}
		writeStatus(w, status, err)
	}
}

type playNamedRequest struct {
	Name string `json:"name"`
}

func handlePlayNamed(playlist bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		var req playNamedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "Name is required", http.StatusBadRequest)
			return
		}
		var status string
		var err error
		if playlist {
			status, err = controller.PlayPlaylist(req.Name, room)
		} else {
			status, err = controller.PlayFavorite(req.Name, room)
		}
		writeStatus(w, status, err)
	}
}

type groupRequest struct {
	Room   string   `json:"room"`
	Others []string `json:"others"`
}

func handleGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Room == "" {
		http.Error(w, "Room is required", http.StatusBadRequest)
		return
	}
	if len(req.Others) == 0 {
		// Group with every other room in the system
		result, err := controller.GroupAllRoomsWith(req.Room)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, result)
		return
	}
	writeJSON(w, controller.Group(req.Room, req.Others))
}

type ungroupRequest struct {
	Rooms []string `json:"rooms"`
}

func handleUngroup(w http.ResponseWriter, r *http.Request) {
	var req ungroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, controller.Ungroup(req.Rooms))
}

func handleUngroupAll(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	result, err := controller.UngroupAllRoomsFrom(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, result)
}

func handleEverywhere(playlist bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playNamedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "Name is required", http.StatusBadRequest)
			return
		}
		var status string
		var err error
		if playlist {
			status, err = controller.PlayPlaylistEverywhere(req.Name)
		} else {
			status, err = controller.PlayFavoriteEverywhere(req.Name)
		}
		writeStatus(w, status, err)
	}
}

// handleNowPlayingWidget renders the now-playing widget tree for a room.
// With any=true the first room found playing wins, falling back to the
// requested (or default) room.
func handleNowPlayingWidget(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = appConfig.DefaultRoom
	}
	if room == "" {
		http.Error(w, "Room is required (set DEFAULT_ROOM or pass ?room=)", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("any") == "true" {
		if playing := findPlayingRoom(); playing != "" {
			room = playing
		}
	}

	// A failed track fetch renders the fallback block instead of an error;
	// widgets must keep rendering when the server is flaky.
	track, err := controller.GetCurrentTrack(room)
	if err != nil {
		log.Printf("Widget: failed to fetch current track for %s: %v", room, err)
		track = nil
	}

	opts := widget.DefaultOptions()
	var block *widget.Block
	if r.URL.Query().Get("size") == "small" {
		block = widget.NowPlayingSmall(track, room, opts)
	} else {
		block = widget.NowPlaying(track, room, opts)
	}
	writeJSON(w, block)
}

// findPlayingRoom returns the first room the server reports as PLAYING.
func findPlayingRoom() string {
	rooms, err := controller.GetRooms()
	if err != nil {
		log.Printf("Widget: failed to list rooms: %v", err)
		return ""
	}
	for _, room := range rooms {
		state, err := controller.GetPlaybackState(room)
		if err != nil {
			continue
		}
		if state == "PLAYING" {
			return room
		}
	}
	return ""
}

func handleAlbumArt(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		http.Error(w, "uri is required", http.StatusBadRequest)
		return
	}
	data, err := controller.GetAlbumArtBase64(uri)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"data": data})
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsHub.ServeWS(w, r)
}

// dispatchCommand routes an MQTT room command to the controller.
func dispatchCommand(room, action, payload string) {
	var err error
	switch action {
	case "play":
		_, err = controller.Play(room)
	case "pause":
		_, err = controller.Pause(room)
	case "toggle":
		_, err = controller.Toggle(room)
	case "next":
		_, err = controller.Next(room)
	case "previous":
		_, err = controller.Previous(room)
	case "volume":
		var volume int
		if volume, err = strconv.Atoi(strings.TrimSpace(payload)); err == nil {
			_, err = controller.SetRoomVolume(room, volume)
		}
	case "groupvolume":
		var volume int
		if volume, err = strconv.Atoi(strings.TrimSpace(payload)); err == nil {
			_, err = controller.SetGroupVolume(room, volume)
		}
	case "favorite":
		_, err = controller.PlayFavorite(payload, room)
	case "playlist":
		_, err = controller.PlayPlaylist(payload, room)
	default:
		log.Printf("MQTT: unknown action %q for room %s", action, room)
		return
	}
	if err != nil {
		log.Printf("MQTT command %s failed for room %s: %v", action, room, err)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	items := strings.Split(s, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}
