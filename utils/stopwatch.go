package utils

import (
	"time"
)

// Stopwatch with named laps, for reporting where a run spent its time.
type Watch struct {
	startTime time.Time
	lastLap   time.Time
	Laps      []Lap
}

type Lap struct {
	Name     string
	Duration time.Duration
}

func (w *Watch) Start() {
	w.startTime = time.Now()
	w.lastLap = w.startTime
	w.Laps = w.Laps[:0]
}

// Records the time since the previous lap (or start) under name, and returns it.
func (w *Watch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(w.lastLap)
	w.lastLap = now
	w.Laps = append(w.Laps, Lap{name, d})
	return d
}

// Sum of all laps recorded with the given name.
func (w *Watch) Total(name string) (sum time.Duration) {
	for _, l := range w.Laps {
		if l.Name == name {
			sum += l.Duration
		}
	}
	return sum
}

func (w *Watch) Elapsed() time.Duration {
	return time.Since(w.startTime)
}
