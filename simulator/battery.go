package main

import (
	"sync"
	"time"
)

// Battery models a vehicle battery draining over time. The level is a
// percentage in [0,100].
type Battery struct {
	Level       float64 // current charge percentage
	IdleDrainPH float64 // percent lost per hour while idle
	WorkDrainPH float64 // percent lost per hour while on a mission

	mu sync.Mutex
}

// Drain updates the level for the elapsed duration and returns the new level.
func (b *Battery) Drain(dt time.Duration, working bool) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	rate := b.IdleDrainPH
	if working {
		rate = b.WorkDrainPH
	}
	b.Level -= rate * dt.Hours()
	if b.Level < 0 {
		b.Level = 0
	}
	return b.Level
}

// Depleted reports whether the battery has run out.
func (b *Battery) Depleted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Level <= 0
}
