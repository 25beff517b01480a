package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimulatorOptions tunes the simulated gateway
type SimulatorOptions struct {
	Latency     time.Duration
	DeclineRate float64         // probability in [0,1] of a random decline
	DeclineOver decimal.Decimal // amounts above this are declined; zero disables
}

// Simulator is an in-process gateway for local development and demos
type Simulator struct {
	opts SimulatorOptions

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator creates a simulated gateway
func NewSimulator(opts SimulatorOptions) *Simulator {
	return &Simulator{
		opts: opts,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Authorize waits for the configured latency, then approves or declines
func (s *Simulator) Authorize(ctx context.Context, req Request) Result {
	if err := waitOrCancel(ctx, s.opts.Latency); err != nil {
		return Failed(err.Error())
	}

	if !req.Amount.IsPositive() {
		return Declined("invalid amount")
	}
	if s.opts.DeclineOver.IsPositive() && req.Amount.GreaterThan(s.opts.DeclineOver) {
		return Declined("amount exceeds card limit")
	}
	if s.opts.DeclineRate > 0 && s.roll() < s.opts.DeclineRate {
		return Declined("card declined by issuer")
	}

	return Succeeded(fmt.Sprintf("TXN-%s", uuid.NewString()), req.Amount)
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// waitOrCancel blocks for d or until ctx is done
func waitOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
