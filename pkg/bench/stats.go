package bench

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a set of timings or values.
type Stats struct {
	N            int     `json:"n"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// NewStats computes the population mean and standard deviation, minimum and
// maximum of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return Stats{
		N:            len(values),
		Mean:         mean,
		StdDeviation: std,
		Min:          floats.Min(values),
		Max:          floats.Max(values),
	}
}

// Stopwatch records the time elapsed since it was started each time Lap is
// called.
type Stopwatch struct {
	start time.Time
	laps  []time.Duration
}

func NewStopwatch() *Stopwatch {
	return &Stopwatch{start: time.Now()}
}

// Lap records and returns the time since the stopwatch started.
func (s *Stopwatch) Lap() time.Duration {
	d := time.Since(s.start)
	s.laps = append(s.laps, d)
	return d
}

// Laps returns the cumulative times in seconds.
func (s *Stopwatch) Laps() []float64 {
	res := make([]float64, len(s.laps))
	for i, d := range s.laps {
		res[i] = d.Seconds()
	}
	return res
}

// Intervals returns the seconds between consecutive laps, the first measured
// from the start.
func (s *Stopwatch) Intervals() []float64 {
	res := make([]float64, len(s.laps))
	var prev time.Duration
	for i, d := range s.laps {
		res[i] = (d - prev).Seconds()
		prev = d
	}
	return res
}

// Total returns the time of the last lap.
func (s *Stopwatch) Total() time.Duration {
	if len(s.laps) == 0 {
		return 0
	}
	return s.laps[len(s.laps)-1]
}
