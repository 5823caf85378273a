package goSession

import (
	"io"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one security-relevant occurrence emitted by the Engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type MultiSink = internalaudit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewMultiSink fans events out to every non-nil sink.
func NewMultiSink(sinks ...AuditSink) MultiSink {
	return internalaudit.NewMultiSink(sinks...)
}
