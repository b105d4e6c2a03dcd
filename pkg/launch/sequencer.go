package launch

import (
	"context"
	"time"

	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ServiceLauncher is what the sequencer needs from a launcher. Tests
// substitute a recording double to verify ordering.
type ServiceLauncher interface {
	Launch(ctx context.Context, svc registry.ServiceDefinition, mode Mode) Result
}

type SequencerOptions struct {
	// StartDelay gates dependents when readiness probing is off.
	StartDelay time.Duration
	// ReadyTimeout bounds the readiness probe.
	ReadyTimeout time.Duration
	// UseReadiness selects the PING probe over the blind delay.
	UseReadiness bool
}

// Sequencer runs the composite launch: broker first, then a readiness gate,
// then the remaining services concurrently.
type Sequencer struct {
	launcher  ServiceLauncher
	opts      SequencerOptions
	waitReady func(ctx context.Context, addr string) error
}

func NewSequencer(l ServiceLauncher, opts SequencerOptions) *Sequencer {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	return &Sequencer{launcher: l, opts: opts, waitReady: WaitBroker}
}

// Up launches every definition in defs, detached. The broker is launched
// first and gated on; if its spawn or its gate fails the dependents are not
// attempted and the single failed result is returned. Dependent failures are
// independent of each other: every dependent is attempted and every outcome
// reported. The returned results keep the defs order, broker first.
func (s *Sequencer) Up(ctx context.Context, defs []registry.ServiceDefinition) ([]Result, error) {
	var broker *registry.ServiceDefinition
	deps := make([]registry.ServiceDefinition, 0, len(defs))
	for i := range defs {
		if defs[i].Broker {
			if broker != nil {
				return nil, errors.New("more than one broker service defined")
			}
			broker = &defs[i]
			continue
		}
		deps = append(deps, defs[i])
	}
	if broker == nil {
		return nil, errors.New("no broker service defined")
	}

	brokerRes := s.launcher.Launch(ctx, *broker, Detached)
	if brokerRes.Err != nil {
		return []Result{brokerRes}, nil
	}

	if err := s.gate(ctx, broker.ReadyAddr); err != nil {
		brokerRes.Err = err
		return []Result{brokerRes}, nil
	}

	results := make([]Result, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	for i := range deps {
		i := i
		g.Go(func() error {
			results[i] = s.launcher.Launch(gctx, deps[i], Detached)
			return nil
		})
	}
	// Launch failures live in the results, not in the group error.
	_ = g.Wait()

	return append([]Result{brokerRes}, results...), nil
}

func (s *Sequencer) gate(ctx context.Context, addr string) error {
	if s.opts.UseReadiness && addr != "" {
		log.Debug().Str("addr", addr).Dur("timeout", s.opts.ReadyTimeout).Msg("waiting for broker readiness")
		readyCtx, cancel := context.WithTimeout(ctx, s.opts.ReadyTimeout)
		defer cancel()
		return s.waitReady(readyCtx, addr)
	}

	if s.opts.StartDelay <= 0 {
		return nil
	}
	log.Debug().Dur("delay", s.opts.StartDelay).Msg("waiting fixed delay before dependents")
	t := time.NewTimer(s.opts.StartDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "interrupted while waiting for broker")
	case <-t.C:
		return nil
	}
}
