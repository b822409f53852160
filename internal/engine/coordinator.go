package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/mt"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/sched"
)

// runTrial executes one trial: spawn a worker per spec, pin each to its
// core, rendezvous, release, join, and hand back the result slots.
//
// Worker lifecycle is Spawned → Pinned → ReadyWait → Running → Joined. Each
// worker owns its own ready and start channels; a shared primitive would be
// a single point of artificial serialization. The go broadcast happens only
// after every worker has signalled ready and the settle delay has elapsed,
// so the timed sections start as closely aligned as the scheduler allows.
// No ordering exists between workers' operations once running; that absence
// is the property under test.
//
// A single deadline covers the whole ready-to-joined span. On expiry the
// trial is abandoned and the error aborts the run: a worker stuck before
// the join is either a deadlock in the construct under test or a harness
// bug, and the spinning goroutine cannot be killed, so the process is
// expected to exit.
func (e *Engine) runTrial(ctx context.Context, trial int, trialSeed uint32) ([][]int64, error) {
	n := len(e.prog)
	ready := make([]chan struct{}, n)
	start := make([]chan struct{}, n)
	results := make([][]int64, n)
	for w := 0; w < n; w++ {
		ready[w] = make(chan struct{})
		start[w] = make(chan struct{})
	}

	var g errgroup.Group
	for w := 0; w < n; w++ {
		w := w
		g.Go(func() error {
			// Setup runs before the ready signal so thread creation,
			// pinning, and PRNG seeding never count against the
			// timed section.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if err := sched.Pin(e.cores[w]); err != nil {
				if !e.cfg.AllowUnpinned {
					close(ready[w])
					return newAffinityError(w, e.cores[w], err)
				}
				slog.Warn("worker running unpinned",
					"worker", w,
					"core", e.cores[w],
					"error", err,
				)
			}
			wk := newWorker(w, e.prog[w], e.test.Workers[w].Registers, e.state, mt.New(workerSeed(trialSeed, w)), &e.cfg)

			close(ready[w])
			<-start[w]

			wk.run()
			results[w] = wk.regs
			return nil
		})
	}

	deadline := time.NewTimer(e.cfg.TrialTimeout)
	defer deadline.Stop()

	for w := 0; w < n; w++ {
		select {
		case <-ready[w]:
		case <-deadline.C:
			return nil, newTimeoutError(trial, fmt.Sprintf("worker %d never became ready", w))
		case <-ctx.Done():
			return nil, fmt.Errorf("trial %d cancelled during rendezvous: %w", trial, ctx.Err())
		}
	}

	// Affinity requests are applied; let migrations settle before the
	// timed section.
	time.Sleep(e.cfg.SettleDelay)
	for w := 0; w < n; w++ {
		close(start[w])
	}

	joined := make(chan error, 1)
	go func() { joined <- g.Wait() }()

	select {
	case err := <-joined:
		if err != nil {
			return nil, err
		}
		// Result slots may be read now: every worker has joined.
		return results, nil
	case <-deadline.C:
		return nil, newTimeoutError(trial, fmt.Sprintf("trial did not join within %s", e.cfg.TrialTimeout))
	case <-ctx.Done():
		return nil, fmt.Errorf("trial %d cancelled while joining: %w", trial, ctx.Err())
	}
}
