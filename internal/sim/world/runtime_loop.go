package world

import (
	"context"
	"time"
)

// Run drives the tick loop until ctx is cancelled or Stop is called.
// External requests (commands, observer attach/detach) are drained only
// at tick boundaries, which is what keeps the sim single-threaded.
func (w *World) Run(ctx context.Context) {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.detach:
			w.handleDetach(id)
		case <-ticker.C:
			w.stepInternal(w.drainInbox())
		}
	}
}

func (w *World) Stop() {
	close(w.stop)
}

func (w *World) drainInbox() []CommandEnvelope {
	var cmds []CommandEnvelope
	for {
		select {
		case env := <-w.inbox:
			cmds = append(cmds, env)
		default:
			return cmds
		}
	}
}
