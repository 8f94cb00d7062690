package app

import (
	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// Observers fans engine events out to several observers in order.
type Observers []ports.Observer

func (o Observers) OnStageChange(previous, current domain.Stage, reason string) {
	for _, obs := range o {
		obs.OnStageChange(previous, current, reason)
	}
}

func (o Observers) OnRead(outcome ports.ReadOutcome) {
	for _, obs := range o {
		obs.OnRead(outcome)
	}
}

func (o Observers) OnCheckpoint(summary domain.Summary) {
	for _, obs := range o {
		obs.OnCheckpoint(summary)
	}
}
