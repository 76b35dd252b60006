// Package sinks provides tsslog.Sink implementations.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"trailstate/server/tsslog"
)

// Console writes events as formatted lines to the provided writer.
type Console struct {
	logger *log.Logger
}

// NewConsole constructs a Console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

// Write implements tsslog.Sink. Warn and Error events get a leading marker
// so a rewind storm or an invalidation is easy to spot by eye in a scrolling
// console, without needing a separate alerting sink.
func (c *Console) Write(event tsslog.Event) error {
	if c == nil || c.logger == nil {
		return nil
	}
	marker := ""
	if event.Severity >= tsslog.SeverityWarn {
		marker = "! "
	}
	c.logger.Printf("%s[%s] frame=%d category=%s severity=%s%s",
		marker, event.Type, event.Frame, event.Category, severityName(event.Severity), formatPayload(event.Payload))
	return nil
}

// Close implements tsslog.Sink.
func (c *Console) Close(context.Context) error { return nil }

func severityName(s tsslog.Severity) string {
	switch s {
	case tsslog.SeverityDebug:
		return "debug"
	case tsslog.SeverityInfo:
		return "info"
	case tsslog.SeverityWarn:
		return "warn"
	case tsslog.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}
