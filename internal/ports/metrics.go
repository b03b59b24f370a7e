package ports

import "github.com/bnema/gemini-live-cli/internal/domain"

// Metrics receives lifecycle signals from the continuity components.
type Metrics interface {
	ConnectionEstablished()
	ConnectionClosed(kind domain.CloseKind)
	ReconnectScheduled(attempt int)
	SummarizationFinished(outcome string)
	TranscriptRecorded(ok bool)
}

type NopMetrics struct{}

func (NopMetrics) ConnectionEstablished() {}
func (NopMetrics) ConnectionClosed(domain.CloseKind) {}
func (NopMetrics) ReconnectScheduled(int) {}
func (NopMetrics) SummarizationFinished(string) {}
func (NopMetrics) TranscriptRecorded(bool) {}
