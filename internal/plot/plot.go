// Package plot receives chart series emitted during a run.
package plot

import "time"

// Plotter accepts one value of a named series on a chart.
type Plotter interface {
	Plot(chart, series string, at time.Time, value float64)
}

type Point struct {
	Chart  string    `csv:"chart"`
	Series string    `csv:"series"`
	Time   time.Time `csv:"time"`
	Value  float64   `csv:"value"`
}

// Multi fans every point out to each non-nil sink.
type Multi []Plotter

func (m Multi) Plot(chart, series string, at time.Time, value float64) {
	for _, p := range m {
		if p != nil {
			p.Plot(chart, series, at, value)
		}
	}
}
