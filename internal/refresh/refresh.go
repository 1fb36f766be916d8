package refresh

import (
    "context"
    "sync"
    "time"

    "github.com/yourorg/simulation-api/internal/sim"
)

// Job asks for one property's estimate to be recomputed and re-cached.
type Job struct {
    CacheKey string
    Prop     sim.PropertyAttributes
}

// Refresher recomputes stale ad-hoc estimates in the background so the
// estimate endpoint can serve cached results immediately. One in-flight job
// per cache key; saturated queue drops instead of blocking the request path.
type Refresher struct {
    ch    chan Job
    inFly sync.Map // cache key -> struct{}
    Do    func(ctx context.Context, j Job)
}

func New(capacity int, workerCount int, do func(ctx context.Context, j Job)) *Refresher {
    if capacity <= 0 { capacity = 256 }
    if workerCount <= 0 { workerCount = 2 }
    r := &Refresher{ ch: make(chan Job, capacity), Do: do }
    for i := 0; i < workerCount; i++ {
        go r.worker()
    }
    return r
}

func (r *Refresher) Enqueue(j Job) {
    if _, exists := r.inFly.LoadOrStore(j.CacheKey, struct{}{}); exists {
        return
    }
    select {
    case r.ch <- j:
    default:
        // drop if saturated
        r.inFly.Delete(j.CacheKey)
    }
}

func (r *Refresher) worker() {
    for j := range r.ch {
        ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
        func() {
            defer func() {
                r.inFly.Delete(j.CacheKey)
                cancel()
            }()
            if r.Do != nil { r.Do(ctx, j) }
        }()
    }
}
