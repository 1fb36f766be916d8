package notify

import (
    "context"

    "go.uber.org/zap"

    "github.com/yourorg/simulation-api/internal/events"
)

// Notifier consumes simulation.completed events and logs them. The real
// Slack dispatcher lives outside this service; swapping it in only means
// replacing the log call with a webhook post.
type Notifier struct {
    Pub events.Publisher
    Log *zap.Logger
}

func (n *Notifier) Run(ctx context.Context) {
    log := n.Log
    if log == nil { log = zap.NewNop() }
    sub := n.Pub.SubscribeSimulationCompleted()
    for {
        select {
        case <-ctx.Done():
            return
        case evt := <-sub:
            log.Info("simulation completed",
                zap.String("listing_id", evt.ListingID),
                zap.Int64("annual_revenue", evt.AnnualRevenue),
                zap.Int64("annual_profit", evt.AnnualProfit),
                zap.String("data_source", evt.DataSource))
        }
    }
}
