package bench

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.N)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.StdDeviation, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)

	assert.Equal(t, Stats{}, NewStats(nil))
}

func TestStopwatch(t *testing.T) {
	sw := NewStopwatch()
	assert.Equal(t, time.Duration(0), sw.Total())

	for i := 0; i < 3; i++ {
		time.Sleep(time.Millisecond)
		sw.Lap()
	}
	laps := sw.Laps()
	intervals := sw.Intervals()
	assert.Len(t, laps, 3)
	assert.Len(t, intervals, 3)

	sum := 0.0
	for i := range laps {
		if i > 0 {
			assert.True(t, laps[i] >= laps[i-1])
		}
		assert.True(t, intervals[i] > 0)
		sum += intervals[i]
	}
	assert.InDelta(t, laps[2], sum, 1e-9)
	assert.InDelta(t, laps[2], sw.Total().Seconds(), 1e-9)
}

func TestReport(t *testing.T) {
	r := NewReport("insert")
	r.AddValues("rows", 6, []float64{1, 2, 3})

	var buf bytes.Buffer
	r.Render(&buf, false)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "insert\n"), out)
	assert.Contains(t, out, "rows")
	assert.Contains(t, out, "6.000000")
	assert.Contains(t, out, "2.000000")

	buf.Reset()
	r.Render(&buf, true)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "name,n,total,mean,std,min,max", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "rows,3,6.000000,2.000000,"), lines[1])
}
