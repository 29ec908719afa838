package plot

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

// Recorder keeps every point in memory for reports and CSV export.
type Recorder struct {
	mu     sync.Mutex
	points []Point
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Plot(chart, series string, at time.Time, value float64) {
	r.mu.Lock()
	r.points = append(r.points, Point{Chart: chart, Series: series, Time: at, Value: value})
	r.mu.Unlock()
}

// Points returns a copy of everything recorded, in arrival order.
func (r *Recorder) Points() []Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Point(nil), r.points...)
}

func (r *Recorder) Series(chart, series string) []Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Point
	for _, p := range r.points {
		if p.Chart == chart && p.Series == series {
			out = append(out, p)
		}
	}
	return out
}

// WriteCSV replaces path with the recorded points.
func (r *Recorder) WriteCSV(path string) error {
	pts := r.Points()
	os.Remove(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&pts, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
