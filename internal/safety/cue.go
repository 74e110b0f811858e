package safety

import (
	"context"

	"siteops-backend/internal/models"
)

// Cue is the audible notification for a newly raised alert. Clients play
// the alert sound Repeat times at Volume (0-1).
type Cue struct {
	Alert  models.Alert `json:"alert"`
	Volume float64      `json:"volume"`
	Repeat int          `json:"repeat"`
}

func CueFor(alert models.Alert) Cue {
	cue := Cue{Alert: alert}
	switch alert.Severity {
	case models.SeverityCritical:
		cue.Volume, cue.Repeat = 1.0, 3
	case models.SeverityHigh:
		cue.Volume, cue.Repeat = 0.8, 2
	case models.SeverityMedium:
		cue.Volume, cue.Repeat = 0.6, 1
	default:
		cue.Volume, cue.Repeat = 0.4, 1
	}
	return cue
}

// CueSink delivers cues to listeners. Delivery errors are logged by the
// monitor and never retried.
type CueSink interface {
	Name() string
	DeliverCue(ctx context.Context, cue Cue) error
}

// SelectCue picks the alert that gets the cue among those raised in one
// tick: highest severity wins, earliest detection breaks ties.
func SelectCue(raised []models.Alert) (models.Alert, bool) {
	if len(raised) == 0 {
		return models.Alert{}, false
	}
	best := raised[0]
	for _, a := range raised[1:] {
		if a.Severity.Rank() > best.Severity.Rank() {
			best = a
		}
	}
	return best, true
}
