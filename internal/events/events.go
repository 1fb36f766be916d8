package events

import (
    "context"
)

// SimulationCompleted is published after a listing's scenario set has been
// persisted. Carries the NEUTRAL scenario's headline numbers, which is the
// scenario downstream screening reads.
type SimulationCompleted struct {
    ListingID     string
    AnnualRevenue int64
    AnnualProfit  int64
    DataSource    string
}

type Publisher interface {
    PublishSimulationCompleted(ctx context.Context, evt SimulationCompleted)
    SubscribeSimulationCompleted() <-chan SimulationCompleted
}

type inMemory struct { ch chan SimulationCompleted }

func NewInMemory(buffer int) Publisher {
    if buffer <= 0 { buffer = 256 }
    return &inMemory{ ch: make(chan SimulationCompleted, buffer) }
}

func (m *inMemory) PublishSimulationCompleted(_ context.Context, evt SimulationCompleted) {
    select { case m.ch <- evt: default: }
}

func (m *inMemory) SubscribeSimulationCompleted() <-chan SimulationCompleted { return m.ch }
