package notifications

import (
	"io"
	"time"
)

// Alerter plays the audible cue for newly-arrived orders. It fires at most
// once per reconciliation tick regardless of how many orders appeared.
type Alerter interface {
	Alert()
}

// NoopAlerter suppresses the cue, for tests and headless runs.
type NoopAlerter struct{}

func (NoopAlerter) Alert() {}

// BellAlerter writes a two-tone terminal bell, standing in for the dashboard's
// two-note chime.
type BellAlerter struct {
	Out io.Writer
	// Gap between the two tones; defaults to 150ms.
	Gap time.Duration
}

func (b BellAlerter) Alert() {
	if b.Out == nil {
		return
	}
	gap := b.Gap
	if gap <= 0 {
		gap = 150 * time.Millisecond
	}
	_, _ = b.Out.Write([]byte{'\a'})
	time.Sleep(gap)
	_, _ = b.Out.Write([]byte{'\a'})
}
