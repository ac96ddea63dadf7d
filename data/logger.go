// Package data holds the sinks sequences log into: an in-memory buffered
// logger with per-channel statistics and CSV export, and a remote HTTP sink.
package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Point is one logged record with its offset from the logger start.
type Point struct {
	Timestamp float64
	Data      map[string]any
}

// Stats summarizes one channel's numeric values.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Std   float64
}

// Logger is a bounded in-memory data sink. When the buffer is full the
// oldest points are dropped.
type Logger struct {
	mu      sync.RWMutex
	size    int
	points  []Point
	chans   []string
	seen    map[string]bool
	start   time.Time
	count   int
	dropped int
}

func NewLogger(bufferSize int) *Logger {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &Logger{
		size:  bufferSize,
		seen:  make(map[string]bool),
		start: time.Now(),
	}
}

// LogData implements runtime.Sink.
func (l *Logger) LogData(data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := Point{
		Timestamp: time.Since(l.start).Seconds(),
		Data:      data,
	}
	if len(l.points) >= l.size {
		l.points = l.points[1:]
		l.dropped++
	}
	l.points = append(l.points, p)
	l.count++

	for ch := range data {
		if !l.seen[ch] {
			l.seen[ch] = true
			l.chans = append(l.chans, ch)
		}
	}
	return nil
}

// Points returns a copy of the buffered points in log order.
func (l *Logger) Points() []Point {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Point(nil), l.points...)
}

// Channels returns channel names in first-seen order.
func (l *Logger) Channels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.chans...)
}

// Count is the total number of points logged, including dropped ones.
func (l *Logger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.points)
}

// ChannelValues extracts the numeric series for one channel.
func (l *Logger) ChannelValues(channel string) []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var vals []float64
	for _, p := range l.points {
		if v, ok := p.Data[channel]; ok {
			if f, ok := numeric(v); ok {
				vals = append(vals, f)
			}
		}
	}
	return vals
}

// Statistics computes min/max/mean/std over a channel's numeric values. An
// unlogged channel yields the zero Stats.
func (l *Logger) Statistics(channel string) Stats {
	vals := l.ChannelValues(channel)
	if len(vals) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(vals), Min: vals[0], Max: vals[0]}
	sum := 0.0
	for _, v := range vals {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Mean = sum / float64(len(vals))
	variance := 0.0
	for _, v := range vals {
		d := v - s.Mean
		variance += d * d
	}
	s.Std = math.Sqrt(variance / float64(len(vals)))
	return s
}

// Clear drops all buffered points and channel bookkeeping.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points = nil
	l.chans = nil
	l.seen = make(map[string]bool)
	l.count = 0
	l.dropped = 0
	l.start = time.Now()
}

// ExportCSV writes the buffer as one row per point: timestamp followed by
// every channel column, blank where a point lacks the channel.
func (l *Logger) ExportCSV(path string) error {
	l.mu.RLock()
	points := append([]Point(nil), l.points...)
	channels := append([]string(nil), l.chans...)
	l.mu.RUnlock()
	sort.Strings(channels)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"timestamp"}, channels...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range points {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(p.Timestamp, 'f', 6, 64))
		for _, ch := range channels {
			v, ok := p.Data[ch]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatCell(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v any) string {
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
