package nowplaying

import (
	"log"
	"time"

	"sonos_control/internal/sonos"
)

// Poller watches a set of rooms through the controller and reports changes.
// Rooms are queried sequentially, one call at a time, so outcomes stay
// attributable per room.
type Poller struct {
	controller *sonos.Client
	rooms      []string
	interval   time.Duration

	// OnTrackChange fires when a room's current track changes; track is nil
	// when the room stops playing.
	OnTrackChange func(room string, track *sonos.Track)
	// OnStateChange fires when a room's playback state changes.
	OnStateChange func(room, state string)

	lastState map[string]string
	lastTrack map[string]string
	stop      chan struct{}
}

// NewPoller creates a poller for the given rooms. Interval defaults to 10s.
func NewPoller(controller *sonos.Client, rooms []string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		controller: controller,
		rooms:      rooms,
		interval:   interval,
		lastState:  make(map[string]string),
		lastTrack:  make(map[string]string),
		stop:       make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (p *Poller) Start() {
	go func() {
		p.sweep()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.sweep()
			case <-p.stop:
				return
			}
		}
	}()
	log.Printf("Now-playing poller started for %d room(s), interval %s", len(p.rooms), p.interval)
}

// Stop halts polling.
func (p *Poller) Stop() {
	close(p.stop)
}

// sweep queries every room once and fires change callbacks.
func (p *Poller) sweep() {
	for _, room := range p.rooms {
		state, err := p.controller.GetPlaybackState(room)
		if err != nil {
			log.Printf("Poller: failed to get playback state for %s: %v", room, err)
			continue
		}
		if state != p.lastState[room] {
			p.lastState[room] = state
			if p.OnStateChange != nil {
				p.OnStateChange(room, state)
			}
		}

		track, err := p.controller.GetCurrentTrack(room)
		if err != nil {
			log.Printf("Poller: failed to get current track for %s: %v", room, err)
			continue
		}
		key := trackKey(track)
		if key != p.lastTrack[room] {
			p.lastTrack[room] = key
			if p.OnTrackChange != nil {
				p.OnTrackChange(room, track)
			}
		}
	}
}

// trackKey identifies a track for change detection. The URI alone is not
// enough: station streams keep one URI across tracks.
func trackKey(track *sonos.Track) string {
	if track == nil {
		return ""
	}
	return track.TrackURI + "|" + track.Title + "|" + track.Artist
}
