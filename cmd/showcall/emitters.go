package main

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/showcall/showcall-core/internal/infrastructure/influxdb"
	"github.com/showcall/showcall-core/internal/infrastructure/logging"
	"github.com/showcall/showcall-core/internal/infrastructure/mqtt"
	"github.com/showcall/showcall-core/internal/session"
	"github.com/showcall/showcall-core/internal/show"
)

// mqttEmitter fans show events out to crew-facing hardware over MQTT.
//
// Every event is published to its show's event topic. Show lifecycle events
// are additionally retained on the live topic so hardware that connects
// mid-show immediately sees the current state.
type mqttEmitter struct {
	client *mqtt.Client
	qos    byte
	log    *logging.Logger
}

// Emit implements session.Emitter.
func (e *mqttEmitter) Emit(ev session.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.log.Error("encoding event for MQTT", "show_id", ev.ShowID, "type", ev.Type, "error", err)
		return
	}

	topics := mqtt.Topics{}
	if err := e.client.Publish(topics.ShowEvent(ev.ShowID, ev.Type), payload, e.qos, false); err != nil {
		e.log.Warn("publishing event to MQTT", "show_id", ev.ShowID, "type", ev.Type, "error", err)
	}

	if strings.HasPrefix(ev.Type, "show.") {
		if err := e.client.PublishRetained(topics.ShowLive(ev.ShowID), payload); err != nil {
			e.log.Warn("publishing live status to MQTT", "show_id", ev.ShowID, "error", err)
		}
	}
}

// telemetryEmitter records show telemetry points in InfluxDB.
//
// It tracks show start times in memory so cue executions can be placed on
// the show clock. A process restart mid-show loses the start time; those
// executions are recorded with a zero offset rather than dropped.
type telemetryEmitter struct {
	client *influxdb.Client

	mu      sync.Mutex
	started map[string]time.Time
}

func newTelemetryEmitter(client *influxdb.Client) *telemetryEmitter {
	return &telemetryEmitter{
		client:  client,
		started: make(map[string]time.Time),
	}
}

// Emit implements session.Emitter.
func (e *telemetryEmitter) Emit(ev session.Event) {
	switch ev.Type {
	case session.EventShowStarted:
		st, ok := ev.Payload.(*show.Show)
		if !ok || st.StartedAt == nil {
			return
		}
		e.mu.Lock()
		e.started[ev.ShowID] = *st.StartedAt
		e.mu.Unlock()
		e.client.WriteShowStatus(ev.ShowID, string(st.Status), 0)

	case session.EventShowHeld:
		st, ok := ev.Payload.(*show.Show)
		if !ok {
			return
		}
		reason := ""
		if st.HeldReason != nil {
			reason = *st.HeldReason
		}
		e.client.WriteHold(ev.ShowID, reason)
		e.client.WriteShowStatus(ev.ShowID, string(st.Status), e.elapsed(ev.ShowID, ev.At))

	case session.EventShowResumed:
		st, ok := ev.Payload.(*show.Show)
		if !ok {
			return
		}
		e.client.WriteShowStatus(ev.ShowID, string(st.Status), e.elapsed(ev.ShowID, ev.At))

	case session.EventShowEnded:
		st, ok := ev.Payload.(*show.Show)
		if !ok {
			return
		}
		e.client.WriteShowStatus(ev.ShowID, string(st.Status), e.elapsed(ev.ShowID, ev.At))
		e.mu.Lock()
		delete(e.started, ev.ShowID)
		e.mu.Unlock()

	case session.EventCueExecuted:
		res, ok := ev.Payload.(*show.GoResult)
		if !ok || res.ExecutedCue == nil {
			return
		}
		cue := res.ExecutedCue
		at := ev.At
		if cue.ExecutedAt != nil {
			at = *cue.ExecutedAt
		}
		e.client.WriteCueExecution(ev.ShowID, cue.ID, cue.Department, e.elapsed(ev.ShowID, at))
	}
}

// elapsed returns seconds from the show's recorded start to at, or 0 when
// the start time is unknown.
func (e *telemetryEmitter) elapsed(showID string, at time.Time) float64 {
	e.mu.Lock()
	start, ok := e.started[showID]
	e.mu.Unlock()
	if !ok || at.Before(start) {
		return 0
	}
	return at.Sub(start).Seconds()
}
