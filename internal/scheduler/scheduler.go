package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"MarketPulse/internal/model"
	"MarketPulse/internal/render"
)

// Collector gathers one snapshot per watched instrument.
type Collector interface {
	Collect(ctx context.Context) []model.Snapshot
}

// Clock abstracts time so tests can drive the loop without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// ParseSchedule returns a cron schedule for spec, or a constant delay of
// wait when spec is empty. Accepted specs are standard five-field cron
// expressions and descriptors such as "@every 2m" or "@hourly".
func ParseSchedule(spec string, wait time.Duration) (cron.Schedule, error) {
	if spec == "" {
		if wait <= 0 {
			return nil, fmt.Errorf("wait must be positive, got %v", wait)
		}
		return cron.Every(wait), nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Poller runs collect, format, render cycles on a schedule.
// A cycle always completes before the next wait starts.
type Poller struct {
	Schedule   cron.Schedule
	Clock      Clock
	Collector  Collector
	Sink       render.Sink
	Thresholds render.Thresholds
}

// NewPoller creates a Poller on the wall clock.
func NewPoller(sched cron.Schedule, col Collector, sink render.Sink, th render.Thresholds) *Poller {
	return &Poller{
		Schedule:   sched,
		Clock:      RealClock,
		Collector:  col,
		Sink:       sink,
		Thresholds: th,
	}
}

// RunOnce performs a single cycle.
func (p *Poller) RunOnce(ctx context.Context) error {
	start := p.Clock.Now()
	snaps := p.Collector.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	records := render.Format(snaps, p.Thresholds)
	if err := p.Sink.Render(records); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Printf("[INFO] cycle done: %d instruments in %v", len(records), p.Clock.Now().Sub(start).Round(time.Millisecond))
	return nil
}

// Run executes a cycle immediately and then on every scheduled tick until
// ctx is cancelled. Render failures are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	log.Println("[INFO] poller started")
	for {
		if err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("[INFO] poller stopped")
				return ctx.Err()
			}
			log.Printf("[ERROR] cycle: %v", err)
		}

		now := p.Clock.Now()
		wait := p.Schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			log.Println("[INFO] poller stopped")
			return ctx.Err()
		case <-p.Clock.After(wait):
		}
	}
}
