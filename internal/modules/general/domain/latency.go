package domain

import (
	"fmt"
	"time"
)

// LatencyReport describes the gateway round trip time.
type LatencyReport struct {
	Latency time.Duration
}

// NewLatencyReport creates a LatencyReport. Negative latencies, reported
// before the first heartbeat ack, count as zero.
func NewLatencyReport(latency time.Duration) *LatencyReport {
	return &LatencyReport{Latency: max(latency, 0)}
}

// Milliseconds returns the latency rounded to whole milliseconds.
func (r *LatencyReport) Milliseconds() int64 {
	return r.Latency.Round(time.Millisecond).Milliseconds()
}

// Message returns the reply shown to the user.
func (r *LatencyReport) Message() string {
	return fmt.Sprintf("Pong! Current latency is %dms.", r.Milliseconds())
}
