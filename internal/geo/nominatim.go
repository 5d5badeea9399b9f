package geo

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/utils"
)

const (
	nominatimURL       = "https://nominatim.openstreetmap.org"
	nominatimSearch    = "/search"
	defaultUserAgent   = "job_recommender"
	defaultTimeout     = 10 * time.Second
	defaultMinInterval = time.Second
	acceptEncoding     = "gzip"
)

// NominatimOptions configures the OpenStreetMap Nominatim client.
type NominatimOptions struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user-agent"`
	Email     string        `mapstructure:"email"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// MinInterval spaces consecutive requests; the public instance allows one per second.
	MinInterval time.Duration `mapstructure:"min-interval"`
}

// Nominatim is a Geocoder backed by the Nominatim search API.
type Nominatim struct {
	HTTPClient  *http.Client
	APIURL      string
	UserAgent   string
	Email       string
	MinInterval time.Duration

	logger *zap.Logger

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a client; zero options fall back to the public instance defaults.
func NewNominatim(opts NominatimOptions, log *zap.Logger) *Nominatim {
	apiURL := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if apiURL == "" {
		apiURL = nominatimURL
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	interval := opts.MinInterval
	if interval < 0 {
		interval = 0
	} else if interval == 0 {
		interval = defaultMinInterval
	}

	return &Nominatim{
		HTTPClient:  &http.Client{Timeout: timeout},
		APIURL:      apiURL,
		UserAgent:   userAgent,
		Email:       strings.TrimSpace(opts.Email),
		MinInterval: interval,
		logger:      logger.OrNop(log),
		now:         time.Now,
	}
}

// Geocode resolves query to the best matching place.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Lookup, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return NotFound, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.Email != "" {
		q.Set("email", n.Email)
	}

	if err := n.throttle(ctx); err != nil {
		return NotFound, err
	}

	var places []nominatimPlace
	if err := n.getJSON(ctx, n.APIURL+nominatimSearch, q, &places); err != nil {
		return NotFound, fmt.Errorf("nominatim search %q: %w", query, err)
	}

	if len(places) == 0 {
		n.logger.Debug("location not found", zap.String(logger.FieldLocation, query))
		return NotFound, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return NotFound, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return NotFound, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}

	n.logger.Debug("location resolved",
		zap.String(logger.FieldLocation, query),
		zap.String("display_name", places[0].DisplayName),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)

	return Found(Coordinates{Latitude: lat, Longitude: lon}), nil
}

// throttle keeps at least MinInterval between the starts of two requests.
func (n *Nominatim) throttle(ctx context.Context) error {
	if n.MinInterval <= 0 {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.last.IsZero() {
		if wait := n.MinInterval - n.now().Sub(n.last); wait > 0 {
			if err := utils.WaitFor(ctx, wait); err != nil {
				return err
			}
		}
	}
	n.last = n.now()

	return nil
}

func (n *Nominatim) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.URL.RawQuery = q.Encode()

	n.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return json.NewDecoder(reader).Decode(target)
}
