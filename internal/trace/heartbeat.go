package trace

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Heartbeat emits a driver-scope event at a fixed interval while a batch
// runs. A configuration stuck in a stage shows up as heartbeats following
// its span begin with no matching end.
type Heartbeat struct {
	stop context.CancelFunc
	done chan struct{}
}

// StartHeartbeat returns nil when the tracer is off or every is not positive.
func StartHeartbeat(t Tracer, every time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || every <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Heartbeat{stop: cancel, done: make(chan struct{})}
	go h.beat(ctx, t, every)
	return h
}

func (h *Heartbeat) beat(ctx context.Context, t Tracer, every time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	start := time.Now()
	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			detail := fmt.Sprintf("#%d after %s, %d goroutines",
				tick, now.Sub(start).Round(time.Millisecond), runtime.NumGoroutine())
			t.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: detail,
			})
		}
	}
}

// Stop ends the heartbeat and waits for its goroutine. Nil and repeated
// calls are fine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stop()
	<-h.done
}
