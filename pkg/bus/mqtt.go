// Package bus implements the optional truck-supervisor message bus
// described in spec.md §6: JSON payloads over MQTT, QoS >= 1.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// StatePayload mirrors the mine/truck/{id}/state topic's periodic
// full-state publication.
type StatePayload struct {
	TruckID         uint64  `json:"truck_id"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Theta           float64 `json:"theta"`
	Velocity        float64 `json:"velocity"`
	Mode            string  `json:"mode"`
	Status          string  `json:"status"`
	Temperature     float64 `json:"temperature"`
	ElectricalFault bool    `json:"electrical_fault"`
	HydraulicFault  bool    `json:"hydraulic_fault"`
}

// PositionPayload mirrors the mine/truck/{id}/position topic.
type PositionPayload struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Theta    float64 `json:"theta"`
	Velocity float64 `json:"velocity"`
}

// CommandPayload mirrors the mine/truck/{id}/command topic's inbound shape.
type CommandPayload struct {
	Type  string   `json:"type"`
	Value *float64 `json:"value,omitempty"`
}

// SetpointPayload mirrors the mine/truck/{id}/setpoint topic.
type SetpointPayload struct {
	Velocity float64 `json:"velocity"`
	Angular  float64 `json:"angular"`
}

// RoutePayload mirrors the mine/truck/{id}/route topic.
type RoutePayload struct {
	Waypoints [][2]float64 `json:"waypoints"`
}

// Client wraps a paho MQTT client scoped to one truck's topic namespace.
type Client struct {
	mqtt    mqtt.Client
	truckID uint64
	qos     byte
}

// Topics is the fixed set of topics one truck's Client publishes to or
// subscribes from.
type Topics struct {
	State    string
	Position string
	Command  string
	Setpoint string
	Route    string
}

// TopicsFor returns the topic names for a given truck ID.
func TopicsFor(truckID uint64) Topics {
	base := fmt.Sprintf("mine/truck/%d", truckID)
	return Topics{
		State:    base + "/state",
		Position: base + "/position",
		Command:  base + "/command",
		Setpoint: base + "/setpoint",
		Route:    base + "/route",
	}
}

// Connect dials brokerURL and returns a connected Client. clientID
// should be unique per process; qos must be 0, 1 or 2.
func Connect(brokerURL, clientID string, truckID uint64, qos byte) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false)

	c := mqtt.NewClient(opts)
	if tok := c.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tokenErr(tok))
	}

	return &Client{mqtt: c, truckID: truckID, qos: qos}, nil
}

func tokenErr(tok mqtt.Token) error {
	if tok.Error() != nil {
		return tok.Error()
	}
	return fmt.Errorf("connect timed out")
}

// Close disconnects from the broker, waiting up to 250ms to flush.
func (c *Client) Close() {
	c.mqtt.Disconnect(250)
}

// PublishState publishes a full state snapshot.
func (c *Client) PublishState(p StatePayload) error {
	return c.publish(TopicsFor(c.truckID).State, p)
}

// PublishPosition publishes the lighter-weight position payload.
func (c *Client) PublishPosition(p PositionPayload) error {
	return c.publish(TopicsFor(c.truckID).Position, p)
}

func (c *Client) publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	tok := c.mqtt.Publish(topic, c.qos, false, data)
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return fmt.Errorf("publish to %s: %w", topic, tokenErr(tok))
	}
	return nil
}

// SubscribeCommands registers handler for inbound commands on this
// truck's command topic. Malformed payloads are passed to handler as an
// error rather than dropped silently.
func (c *Client) SubscribeCommands(handler func(CommandPayload, error)) error {
	topic := TopicsFor(c.truckID).Command
	tok := c.mqtt.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var p CommandPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			handler(CommandPayload{}, fmt.Errorf("bad command payload: %w", err))
			return
		}
		handler(p, nil)
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, tokenErr(tok))
	}
	return nil
}

// SubscribeSetpoints registers handler for inbound setpoints.
func (c *Client) SubscribeSetpoints(handler func(SetpointPayload, error)) error {
	topic := TopicsFor(c.truckID).Setpoint
	tok := c.mqtt.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var p SetpointPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			handler(SetpointPayload{}, fmt.Errorf("bad setpoint payload: %w", err))
			return
		}
		handler(p, nil)
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, tokenErr(tok))
	}
	return nil
}

// SubscribeRoutes registers handler for inbound waypoint lists.
func (c *Client) SubscribeRoutes(handler func(RoutePayload, error)) error {
	topic := TopicsFor(c.truckID).Route
	tok := c.mqtt.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var p RoutePayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			handler(RoutePayload{}, fmt.Errorf("bad route payload: %w", err))
			return
		}
		handler(p, nil)
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, tokenErr(tok))
	}
	return nil
}

// SubscribeState registers handler for the truck's periodic full-state
// publications, used by supervisor-side tooling (cmd/truckctl status).
func (c *Client) SubscribeState(handler func(StatePayload, error)) error {
	topic := TopicsFor(c.truckID).State
	tok := c.mqtt.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var p StatePayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			handler(StatePayload{}, fmt.Errorf("bad state payload: %w", err))
			return
		}
		handler(p, nil)
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, tokenErr(tok))
	}
	return nil
}

// PublishCommand publishes a command onto the bus toward a truck — used
// by supervisor-side tooling (cmd/truckctl send --remote).
func (c *Client) PublishCommand(p CommandPayload) error {
	return c.publish(TopicsFor(c.truckID).Command, p)
}

// PublishRoute publishes a waypoint list toward a truck.
func (c *Client) PublishRoute(p RoutePayload) error {
	return c.publish(TopicsFor(c.truckID).Route, p)
}
