package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tripsched/internal/metrics"
	"tripsched/internal/model"
)

// HTTPSource queries a mapping service matrix endpoint.
//
// Request:  POST {url} {"origins":[{address,lat,lng}], "destinations":[...]}
// Response: {"distances":[[meters]], "durations":[[seconds]]}
type HTTPSource struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	HTTP    *http.Client
	Limiter *rate.Limiter
	Log     *zap.Logger
}

// NewHTTPSource builds a source with a per-call timeout and a client-side rate limit.
func NewHTTPSource(url, apiKey string, timeout time.Duration, rps float64, burst int, log *zap.Logger) *HTTPSource {
	if log == nil {
		log = zap.NewNop()
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTTPSource{
		URL:     url,
		APIKey:  apiKey,
		Timeout: timeout,
		HTTP:    &http.Client{},
		Limiter: rate.NewLimiter(rate.Limit(rps), burst),
		Log:     log,
	}
}

func (s *HTTPSource) Name() string { return "mapping_service" }

type wireStop struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

func toWire(locs []model.Location) []wireStop {
	out := make([]wireStop, len(locs))
	for i, l := range locs {
		out[i].Address = l.Address
		if l.Point != nil {
			lat, lng := l.Point.Lat, l.Point.Lng
			out[i].Lat, out[i].Lng = &lat, &lng
		}
	}
	return out
}

func (s *HTTPSource) Distances(ctx context.Context, origins, destinations []model.Location) (m Matrix, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.DistanceRequests.WithLabelValues(s.Name(), outcome).Inc()
	}()
	if s.URL == "" {
		return Matrix{}, fmt.Errorf("mapping service not configured")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return Matrix{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	body, err := json.Marshal(map[string]any{"origins": toWire(origins), "destinations": toWire(destinations)})
	if err != nil {
		return Matrix{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return Matrix{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Matrix{}, fmt.Errorf("matrix request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Matrix{}, fmt.Errorf("matrix request: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&m); err != nil {
		return Matrix{}, fmt.Errorf("malformed matrix response: %w", err)
	}
	if err := m.Validate(len(origins), len(destinations)); err != nil {
		return Matrix{}, fmt.Errorf("malformed matrix response: %w", err)
	}
	s.Log.Debug("distance matrix fetched", zap.Int("origins", len(origins)), zap.Int("destinations", len(destinations)), zap.Duration("took", time.Since(start)))
	return m, nil
}
