package service

import (
	"context"
	"math/rand"
	"time"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
)

// ----------- Simulation constants -----------
const (
	FoodWeightDrainGrams   = 0.2  // grams per tick
	FoodReservoirDrainPct  = 0.05 // percent per tick
	WaterReservoirDrainPct = 0.08 // percent per tick

	GasProbability     = 0.005
	MotionProbability  = 0.02
	PumpOffProbability = 0.8 // only drawn while the pump runs
	PumpOnProbability  = 0.05

	DefaultTick = time.Second
)

// SimulatorService drives the synthetic device while the session simulates.
type SimulatorService struct {
	session *Session
	rng     *rand.Rand
	log     *logger.Logger
}

// NewSimulatorService returns a simulator bound to session. rng may be nil.
func NewSimulatorService(session *Session, rng *rand.Rand, log *logger.Logger) *SimulatorService {
	if rng == nil {
		rng = NewRand(0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SimulatorService{session: session, rng: rng, log: log}
}

// NewRand returns a generator seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Run ticks at the given interval while the session simulates. It returns
// when ctx is canceled or when simulation has ended and cannot resume.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTick
	}
	for {
		simulating, ch := s.session.simulationSignal()
		if !simulating {
			if ch == nil {
				s.log.Infow("simulator_stopped")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
				s.log.Infow("simulator_resumed")
				continue
			}
		}
		s.log.Infow("simulator_started", "tick", tick.String())
		if !s.runUntil(ctx, ch, tick) {
			return
		}
	}
}

// runUntil ticks until stopped closes (true) or ctx ends (false).
func (s *SimulatorService) runUntil(ctx context.Context, stopped <-chan struct{}, tick time.Duration) bool {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-stopped:
			return true
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick advances the simulated device by one step. It reports false once
// the session no longer simulates.
func (s *SimulatorService) Tick() bool {
	return s.session.applySimulatorTick(func(prev models.DeviceSnapshot) models.DeviceSnapshot {
		return Step(prev, s.rng)
	})
}

// Step computes the next simulated snapshot. A running pump switches off
// with PumpOffProbability and nothing else changes that tick. Otherwise the
// reservoirs drain, gas and motion are redrawn and an idle pump may start.
func Step(prev models.DeviceSnapshot, rng *rand.Rand) models.DeviceSnapshot {
	if prev.PumpActive && rng.Float64() < PumpOffProbability {
		prev.PumpActive = false
		return prev
	}

	next := prev
	next.FoodWeightGrams = maxFloat(prev.FoodWeightGrams-FoodWeightDrainGrams, 0)
	next.FoodReservoirPct = maxFloat(prev.FoodReservoirPct-FoodReservoirDrainPct, 0)
	next.WaterReservoirPct = maxFloat(prev.WaterReservoirPct-WaterReservoirDrainPct, 0)
	next.GasDetected = rng.Float64() < GasProbability
	next.MotionDetected = rng.Float64() < MotionProbability
	if !prev.PumpActive {
		next.PumpActive = rng.Float64() < PumpOnProbability
	}
	return next.Clamped()
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
