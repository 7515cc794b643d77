package indexer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/collector"
)

// AddressCollector refreshes the watched address set.
type AddressCollector interface {
	CollectAddresses(ctx context.Context) collector.Result
}

// Periodic runs collect-then-index passes in the background.
type Periodic struct {
	collector  AddressCollector
	indexer    Service
	runTimeout time.Duration
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPeriodic creates a Periodic. runTimeout bounds a single pass; zero means unbounded.
func NewPeriodic(c AddressCollector, svc Service, runTimeout time.Duration, logger *zap.Logger) *Periodic {
	ctx, cancel := context.WithCancel(context.Background())
	return &Periodic{
		collector:  c,
		indexer:    svc,
		runTimeout: runTimeout,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RunOnce collects addresses and indexes all of them. It is cut short by ctx or Stop.
func (p *Periodic) RunOnce(ctx context.Context) Summary {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if p.runTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, p.runTimeout)
		defer timeoutCancel()
	}

	collected := p.collector.CollectAddresses(ctx)
	p.logger.Info("Collected addresses",
		zap.Int("total", collected.Total),
		zap.Int("new", collected.New),
	)
	return p.indexer.IndexAll(ctx)
}

// RunAsync starts one pass in the background. Stop cancels and waits for it.
func (p *Periodic) RunAsync() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunOnce(p.ctx)
	}()
}

// Start runs a pass every interval until Stop is called.
func (p *Periodic) Start(interval time.Duration) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.logger.Info("Started periodic indexing", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				p.RunOnce(p.ctx)
			case <-p.ctx.Done():
				p.logger.Info("Stopping periodic indexing")
				return
			}
		}
	}()
}

// Stop cancels any in-flight pass and waits for the loop to exit. It is safe to
// call more than once.
func (p *Periodic) Stop() {
	p.once.Do(p.cancel)
	p.wg.Wait()
}
