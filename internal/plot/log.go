package plot

import (
	"log"
	"time"
)

type LogSink struct {
	Logger *log.Logger // nil uses the standard logger
}

func (s LogSink) Plot(chart, series string, at time.Time, value float64) {
	logf := log.Printf
	if s.Logger != nil {
		logf = s.Logger.Printf
	}
	logf("[PLOT] %s | %s %s = %.2f", chart, at.Format("2006-01-02"), series, value)
}
