// Package wire defines the newline-delimited JSON envelope exchanged with the
// telemetry collector. Field names are deliberately short; the envelope is
// emitted for every record a process produces.
package wire

import (
	"time"

	"github.com/sidewire/sidewire/internal/runtime/jsoncodec"
)

// ProtocolVersion is the envelope format version carried in the "v" field.
const ProtocolVersion = 1

// Record types carried in the envelope "type" field.
const (
	TypeEvent    = "event"
	TypeMetric   = "metric"
	TypeProgress = "progress"
	TypeResource = "resource"
	TypeSpan     = "span"
	TypeGoodbye  = "goodbye"
)

// Envelope is the outer frame for every telemetry record. One envelope is
// encoded per line on the wire.
type Envelope struct {
	Version   int    `json:"v"`
	Source    string `json:"src"`
	Timestamp int64  `json:"ts"`
	Type      string `json:"type"`
	TraceID   string `json:"tid,omitempty"`
	SpanID    string `json:"sid,omitempty"`
	ParentID  string `json:"pid,omitempty"`
	Data      any    `json:"data"`
}

// NewEnvelope creates an envelope stamped with the current time in Unix
// milliseconds.
func NewEnvelope(source, recordType string, data any) Envelope {
	return Envelope{
		Version:   ProtocolVersion,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Type:      recordType,
		Data:      data,
	}
}

// EventData is the payload for log events.
type EventData struct {
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Context map[string]any `json:"ctx"`
}

// MetricData is the payload for numeric measurements.
type MetricData struct {
	Name  string            `json:"name"`
	Value float64           `json:"value"`
	Unit  string            `json:"unit"`
	Tags  map[string]string `json:"tags"`
}

// ProgressData is the payload for job progress updates.
type ProgressData struct {
	JobID   string  `json:"job_id"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
}

// ResourceData is the payload for process resource snapshots.
type ResourceData struct {
	CPUPercent  float64 `json:"cpu"`
	MemoryMB    float64 `json:"mem"`
	DiskIOMB    float64 `json:"disk"`
	NetworkIOMB float64 `json:"net"`
	PID         int     `json:"pid"`
}

// SpanData is the payload for completed spans. End is nil while the span is
// open.
type SpanData struct {
	Name   string            `json:"name"`
	Start  int64             `json:"start"`
	End    *int64            `json:"end,omitempty"`
	Status string            `json:"status,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Encode serialises the envelope as a single newline-terminated JSON line.
func Encode(e Envelope) ([]byte, error) {
	return jsoncodec.MarshalLine(e)
}

// Decode parses one JSON line back into an envelope. The Data field decodes
// as map[string]any.
func Decode(line []byte) (Envelope, error) {
	var e Envelope
	if err := jsoncodec.Unmarshal(line, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
