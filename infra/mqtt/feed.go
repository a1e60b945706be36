// Package mqtt subscribes to the registry change feed and forwards every
// change to the synchronization engine in enqueue mode.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/syncengine"
	"github.com/kilianp07/evsync/infra/logger"
)

// Engine is the part of the synchronization engine fed by the change feed.
type Engine interface {
	AddStaticData(ctx context.Context, scope model.Scope, mode syncengine.Mode) (ack.Acknowledgement, error)
	UpdateStaticData(ctx context.Context, scope model.Scope, mode syncengine.Mode) (ack.Acknowledgement, error)
	DeleteStaticData(ctx context.Context, scope model.Scope, mode syncengine.Mode) (ack.Acknowledgement, error)
	UpdateStatus(ctx context.Context, updates []model.EVSEStatusUpdate, mode syncengine.Mode) (ack.Acknowledgement, error)
	SendCDRs(ctx context.Context, records []model.ChargeDetailRecord, mode syncengine.Mode) (ack.Acknowledgement, error)
}

// Topic suffixes below the configured prefix.
const (
	TopicEVSEAdd    = "evse/add"
	TopicEVSEUpdate = "evse/update"
	TopicEVSERemove = "evse/remove"
	TopicStatus     = "status"
	TopicCDR        = "cdr"
)

var feedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "evsync_feed_messages_total",
	Help: "Change feed messages by topic and result",
}, []string{"topic", "result"})

func init() {
	prometheus.MustRegister(feedMessages)
}

// Feed consumes the registry change feed.
type Feed struct {
	cfg    Config
	engine Engine
	log    logger.Logger

	mu  sync.Mutex
	cli pahoClient
	ctx context.Context

	viewMu sync.RWMutex
	view   map[model.EVSEID]model.EVSE
}

var _ syncengine.StatusSource = (*Feed)(nil)

// NewFeed prepares a feed. Nothing is connected until Start.
func NewFeed(cfg Config, engine Engine) (*Feed, error) {
	if engine == nil {
		return nil, fmt.Errorf("mqtt feed: engine is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Feed{
		cfg:    cfg,
		engine: engine,
		log:    logger.New("mqtt_feed"),
		ctx:    context.Background(),
		view:   make(map[model.EVSEID]model.EVSE),
	}, nil
}

// Topic returns the full topic of a suffix.
func (f *Feed) Topic(suffix string) string { return f.cfg.TopicPrefix + "/" + suffix }

// Start connects to the broker. Subscriptions are (re)established on every
// connection. ctx is handed to the engine for every forwarded change.
func (f *Feed) Start(ctx context.Context) error {
	opts, err := NewClientOptions(f.cfg)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.ctx = ctx
	f.mu.Unlock()

	opts.OnConnect = func(c paho.Client) {
		f.log.Infof("MQTT connected, subscribing below %s", f.cfg.TopicPrefix)
		f.subscribe(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		f.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		f.log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	f.mu.Lock()
	f.cli = c
	f.mu.Unlock()
	return nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

func (f *Feed) subscribe(c subscriber) {
	routes := []struct {
		suffix string
		kind   string
	}{
		{TopicEVSEAdd, "evse"},
		{TopicEVSEUpdate, "evse"},
		{TopicEVSERemove, "evse"},
		{TopicStatus, "status"},
		{TopicCDR, "cdr"},
	}
	for _, r := range routes {
		if token := c.Subscribe(f.Topic(r.suffix), f.cfg.QoS[r.kind], f.onMessage); token.Wait() && token.Error() != nil {
			f.log.Errorf("subscribe %s: %v", f.Topic(r.suffix), token.Error())
		}
	}
}

// Stop disconnects from the broker.
func (f *Feed) Stop() {
	f.mu.Lock()
	c := f.cli
	f.cli = nil
	f.mu.Unlock()
	if c != nil && c.IsConnected() {
		c.Disconnect(250)
	}
}

func (f *Feed) onMessage(_ paho.Client, msg paho.Message) {
	suffix := strings.TrimPrefix(msg.Topic(), f.cfg.TopicPrefix+"/")
	if err := f.Handle(suffix, msg.Payload()); err != nil {
		feedMessages.WithLabelValues(suffix, "dropped").Inc()
		f.log.Warnw("change feed message dropped", map[string]any{"topic": msg.Topic(), "error": err.Error()})
		return
	}
	feedMessages.WithLabelValues(suffix, "enqueued").Inc()
}

// Handle decodes a payload received on the topic suffix and enqueues it.
func (f *Feed) Handle(suffix string, payload []byte) error {
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()

	var (
		a   ack.Acknowledgement
		err error
	)
	switch suffix {
	case TopicEVSEAdd, TopicEVSEUpdate, TopicEVSERemove:
		evses, derr := decodeList[model.EVSE](payload)
		if derr != nil {
			return derr
		}
		scope := model.Collection(evses)
		switch suffix {
		case TopicEVSEAdd:
			if a, err = f.engine.AddStaticData(ctx, scope, syncengine.Enqueue); err == nil {
				f.remember(evses)
			}
		case TopicEVSEUpdate:
			if a, err = f.engine.UpdateStaticData(ctx, scope, syncengine.Enqueue); err == nil {
				f.remember(evses)
			}
		default:
			if a, err = f.engine.DeleteStaticData(ctx, scope, syncengine.Enqueue); err == nil {
				f.forget(evses)
			}
		}
	case TopicStatus:
		updates, derr := decodeList[model.EVSEStatusUpdate](payload)
		if derr != nil {
			return derr
		}
		if a, err = f.engine.UpdateStatus(ctx, updates, syncengine.Enqueue); err == nil {
			f.observe(updates)
		}
	case TopicCDR:
		records, derr := decodeList[model.ChargeDetailRecord](payload)
		if derr != nil {
			return derr
		}
		a, err = f.engine.SendCDRs(ctx, records, syncengine.Enqueue)
	default:
		return fmt.Errorf("unknown topic %q", suffix)
	}
	if err != nil {
		return err
	}
	f.log.Debugf("%s: %s", suffix, a.Kind)
	return nil
}

// Snapshot returns the EVSEs announced on the feed with their latest
// status, ordered by identity.
func (f *Feed) Snapshot(context.Context) ([]model.EVSE, error) {
	f.viewMu.RLock()
	out := make([]model.EVSE, 0, len(f.view))
	for _, ev := range f.view {
		out = append(out, ev)
	}
	f.viewMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Feed) remember(evses []model.EVSE) {
	f.viewMu.Lock()
	defer f.viewMu.Unlock()
	for _, ev := range evses {
		if old, ok := f.view[ev.ID]; ok && ev.Status.Timestamp.Before(old.Status.Timestamp) {
			ev.Status = old.Status
		}
		f.view[ev.ID] = ev
	}
}

func (f *Feed) forget(evses []model.EVSE) {
	f.viewMu.Lock()
	defer f.viewMu.Unlock()
	for _, ev := range evses {
		delete(f.view, ev.ID)
	}
}

func (f *Feed) observe(updates []model.EVSEStatusUpdate) {
	f.viewMu.Lock()
	defer f.viewMu.Unlock()
	for _, u := range updates {
		ev, ok := f.view[u.ID()]
		if !ok {
			ev = u.EVSE
		}
		if u.New.Timestamp.Before(ev.Status.Timestamp) {
			continue
		}
		ev.Status = u.New
		f.view[u.ID()] = ev
	}
}

// decodeList accepts either a JSON array or a single object.
func decodeList[T any](payload []byte) ([]T, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if payload[0] == '[' {
		var out []T
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return out, nil
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return []T{v}, nil
}
