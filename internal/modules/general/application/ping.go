package application

import (
	"time"

	"github.com/sglre6355/melodybot/internal/modules/general/domain"
)

// LatencySource reports the current gateway latency.
type LatencySource func() time.Duration

// PingInteractor handles the ping use case.
type PingInteractor struct {
	latency LatencySource
}

// NewPingInteractor creates a new PingInteractor.
func NewPingInteractor(latency LatencySource) *PingInteractor {
	return &PingInteractor{latency: latency}
}

// Execute measures the latency and returns the report.
func (p *PingInteractor) Execute() *domain.LatencyReport {
	return domain.NewLatencyReport(p.latency())
}
