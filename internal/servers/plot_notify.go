package servers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

type plotMsg struct {
	Chart  string  `json:"chart"`
	Series string  `json:"series"`
	TsMs   int64   `json:"ts_ms"`
	Value  float64 `json:"value"`
}

// PlotPoster posts every chart point as JSON to an external collector.
type PlotPoster struct {
	url    string
	client *http.Client
}

func NewPlotPoster(url string) *PlotPoster {
	return &PlotPoster{url: url, client: &http.Client{Timeout: 2 * time.Second}}
}

// PlotPosterFromEnv returns nil when WHEEL_PLOT_URL is unset.
func PlotPosterFromEnv() *PlotPoster {
	url := os.Getenv("WHEEL_PLOT_URL")
	if url == "" {
		return nil
	}
	return NewPlotPoster(url)
}

func (p *PlotPoster) Plot(chart, series string, at time.Time, value float64) {
	body, _ := json.Marshal(plotMsg{Chart: chart, Series: series, TsMs: at.UnixMilli(), Value: value})
	req, _ := http.NewRequest(http.MethodPost, p.url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("[PLOT-NOTIFY] send error: %v", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		log.Printf("[PLOT-NOTIFY] non-2xx: %s", resp.Status)
	}
}
