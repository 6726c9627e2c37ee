package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Runner drives the engine on a fixed interval. It follows the standard
// worker shape: Start spawns the loop, Stop cancels and waits.
type Runner struct {
	engine   *Engine
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner that processes all campaigns every interval.
func NewRunner(engine *Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Runner{engine: engine, interval: interval}
}

// Start begins the periodic processing loop.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("runner already started")
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true

	r.wg.Add(1)
	go r.loop()

	log.Printf("[CampaignRunner] Started (interval %s)", r.interval)
	return nil
}

// Stop halts the loop and waits for the in-flight pass to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	log.Printf("[CampaignRunner] Stopped")
}

func (r *Runner) loop() {
	defer r.wg.Done()

	// First pass immediately, then on the ticker.
	r.runOnce()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *Runner) runOnce() {
	results := r.engine.ProcessAllCampaigns(r.ctx)
	var errs int
	for _, res := range results {
		if res.Err != nil {
			errs++
		}
	}
	if len(results) > 0 {
		log.Printf("[CampaignRunner] Pass complete: %d campaigns, %d errors", len(results), errs)
	}
}
