package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/spectrack/internal/monitoring"
	"github.com/banshee-data/spectrack/internal/spectral"
)

// Topic suffixes.
const (
	KindTracks          = "tracks"
	KindMultiPeakTracks = "multi-peak-tracks"
	KindEvents          = "events"
	KindAcquisitions    = "acquisitions"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "spectrack"

// ErrNotConnected is returned when publishing through a disconnected
// client.
var ErrNotConnected = errors.New("mqtt client not connected")

// Options configures a Publisher.
type Options struct {
	Prefix string // topic prefix, DefaultPrefix when empty
	RunID  string
	QoS    byte
	Retain bool
	// Timeout bounds the wait for each publish acknowledgement.
	Timeout time.Duration
}

// Publisher is a spectral.Sink that publishes every record to MQTT. It
// holds no mutable state besides counters and is safe for concurrent use.
type Publisher struct {
	client mqtt.Client
	opts   Options

	published atomic.Int64
}

var _ spectral.Sink = (*Publisher)(nil)

// NewPublisher returns a Publisher writing through client.
func NewPublisher(client mqtt.Client, opts Options) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("nil mqtt client: %w", spectral.ErrInvalidConfig)
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("qos %d out of range: %w", opts.QoS, spectral.ErrInvalidConfig)
	}
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &Publisher{client: client, opts: opts}, nil
}

// Topic returns the topic a record of kind from componentID is published to.
func (p *Publisher) Topic(componentID int, kind string) string {
	return fmt.Sprintf("%s/%d/%s", p.opts.Prefix, componentID, kind)
}

// Published returns the number of messages acknowledged so far.
func (p *Publisher) Published() int64 { return p.published.Load() }

func (p *Publisher) publish(componentID int, kind string, v any) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	topic := p.Topic(componentID, kind)
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", kind, err)
	}

	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retain, payload)
	if !token.WaitTimeout(p.opts.Timeout) {
		return fmt.Errorf("publishing to %s: timed out after %v", topic, p.opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	p.published.Add(1)
	return nil
}

// Track implements spectral.Sink.
func (p *Publisher) Track(t spectral.Track) error {
	return p.publish(t.ComponentID, KindTracks, newTrackMessage(p.opts.RunID, t))
}

// MultiPeakTrack implements spectral.Sink.
func (p *Publisher) MultiPeakTrack(m spectral.MultiPeakTrack) error {
	return p.publish(m.ComponentID, KindMultiPeakTracks, newMultiPeakMessage(p.opts.RunID, m))
}

// Event implements spectral.Sink.
func (p *Publisher) Event(e spectral.Event) error {
	return p.publish(e.ComponentID, KindEvents, newEventMessage(p.opts.RunID, e))
}

// EndAcquisition implements spectral.Sink.
func (p *Publisher) EndAcquisition(s spectral.AcquisitionSummary) error {
	if err := p.publish(s.ComponentID, KindAcquisitions, newAcquisitionMessage(p.opts.RunID, s)); err != nil {
		return err
	}
	monitoring.Logf("published component %d acquisition %d: %d events", s.ComponentID, s.AcquisitionID, s.Events)
	return nil
}
