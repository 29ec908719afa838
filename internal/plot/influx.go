package plot

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
)

// InfluxSink buffers points and writes them as one batch on Flush.
// Each chart becomes a measurement and each series a field.
type InfluxSink struct {
	influx client.Client
	db     string
	tags   map[string]string

	mu sync.Mutex
	bp client.BatchPoints
}

type InfluxConfig struct {
	Addr     string
	Username string
	Password string
	Database string
	Tags     map[string]string
}

// InfluxConfigFromEnv reads WHEEL_INFLUX_*; ok is false when no URL is set.
func InfluxConfigFromEnv() (InfluxConfig, bool) {
	addr := strings.TrimSpace(os.Getenv("WHEEL_INFLUX_URL"))
	if addr == "" {
		return InfluxConfig{}, false
	}
	db := strings.TrimSpace(os.Getenv("WHEEL_INFLUX_DB"))
	if db == "" {
		db = "wheel"
	}
	return InfluxConfig{
		Addr:     addr,
		Username: os.Getenv("WHEEL_INFLUX_USER"),
		Password: os.Getenv("WHEEL_INFLUX_PASSWORD"),
		Database: db,
	}, true
}

func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("influx client: %w", err)
	}
	s := &InfluxSink{influx: c, db: cfg.Database, tags: cfg.Tags}
	if err := s.reset(); err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

func (s *InfluxSink) reset() error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  s.db,
		Precision: "s",
	})
	if err != nil {
		return fmt.Errorf("influx batch: %w", err)
	}
	s.bp = bp
	return nil
}

func (s *InfluxSink) Plot(chart, series string, at time.Time, value float64) {
	pt, err := client.NewPoint(
		measurement(chart),
		s.tags,
		map[string]interface{}{measurement(series): value},
		at,
	)
	if err != nil {
		log.Printf("[PLOT] influx point %s/%s: %v", chart, series, err)
		return
	}
	s.mu.Lock()
	s.bp.AddPoint(pt)
	s.mu.Unlock()
}

// Flush writes everything buffered since the last flush.
func (s *InfluxSink) Flush() error {
	s.mu.Lock()
	bp := s.bp
	err := s.reset()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if len(bp.Points()) == 0 {
		return nil
	}
	if err := s.influx.Write(bp); err != nil {
		return fmt.Errorf("influx write %d points: %w", len(bp.Points()), err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	ferr := s.Flush()
	if err := s.influx.Close(); err != nil {
		return err
	}
	return ferr
}

// measurement lowercases and snake-cases a display name.
func measurement(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
