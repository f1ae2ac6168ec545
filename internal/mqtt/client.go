package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler is called for every command received on a room's set topic.
// action is the last topic segment (play, pause, toggle, next, previous,
// volume, groupvolume, favorite, playlist); payload carries the value for
// the actions that take one.
type CommandHandler func(room, action, payload string)

// Client bridges the Sonos controller to an MQTT broker: it subscribes to
// per-room command topics and publishes retained now-playing state.
type Client struct {
	client      paho.Client
	topicPrefix string
	handler     CommandHandler
	mu          sync.RWMutex
	connected   bool
}

// Config holds MQTT connection settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string // defaults to "sonos"
}

// NewClient creates an MQTT bridge client. Call Connect to start it.
func NewClient(cfg Config) *Client {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "sonos"
	}
	c := &Client{topicPrefix: prefix}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client paho.Client) {
		log.Println("MQTT connected")
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.subscribeToCommandTopics()
	})

	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	})

	c.client = paho.NewClient(opts)
	return c
}

// Connect starts the MQTT connection.
func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	return nil
}

// SetCommandHandler sets the callback invoked for room commands.
func (c *Client) SetCommandHandler(handler CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// subscribeToCommandTopics subscribes to <prefix>/<room>/set/<action>.
func (c *Client) subscribeToCommandTopics() {
	topic := c.topicPrefix + "/+/set/+"
	token := c.client.Subscribe(topic, 1, c.handleCommandMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("Failed to subscribe to %s: %v", topic, err)
		return
	}
	log.Printf("Subscribed to MQTT topic: %s", topic)
}

// handleCommandMessage parses <prefix>/<room>/set/<action> and dispatches.
func (c *Client) handleCommandMessage(client paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 4 || parts[len(parts)-2] != "set" {
		log.Printf("MQTT: ignoring message on unexpected topic %s", msg.Topic())
		return
	}
	room := parts[len(parts)-3]
	action := parts[len(parts)-1]

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		return
	}
	log.Printf("MQTT command: room=%s action=%s payload=%s", room, action, string(msg.Payload()))
	handler(room, action, string(msg.Payload()))
}

// PublishNowPlaying publishes the room's now-playing state as retained JSON
// on <prefix>/<room>/now_playing. A nil payload clears the topic.
func (c *Client) PublishNowPlaying(room string, payload interface{}) {
	topic := fmt.Sprintf("%s/%s/now_playing", c.topicPrefix, strings.ToLower(room))

	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			log.Printf("MQTT: failed to marshal now-playing payload: %v", err)
			return
		}
	}

	token := c.client.Publish(topic, 0, true, data)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("MQTT: publish to %s failed: %v", topic, err)
	}
}

// PublishPlaybackState publishes the room's playback state on
// <prefix>/<room>/playback_state.
func (c *Client) PublishPlaybackState(room, state string) {
	topic := fmt.Sprintf("%s/%s/playback_state", c.topicPrefix, strings.ToLower(room))
	token := c.client.Publish(topic, 0, true, []byte(state))
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("MQTT: publish to %s failed: %v", topic, err)
	}
}

// IsConnected returns the connection status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Disconnect closes the MQTT connection.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}
