// Package snack publishes code to the hosted Expo Snack service so a preview
// can be opened on a real device runtime.
package snack

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/livetemplate/mint/internal/cache"
)

const (
	// DefaultEndpoint is the snack save API.
	DefaultEndpoint = "https://exp.host/--/api/v2/snack/save"
	// EmbedBase is the prefix of embeddable snack URLs.
	EmbedBase = "https://snack.expo.dev/embed"

	apiVersion      = "3.0.0"
	defaultFileName = "App.js"
	maxErrorBody    = 4 << 10
)

// Manifest describes the published snack.
type Manifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SDKVersion  string `json:"sdkVersion"`
}

// File is one source file of a snack.
type File struct {
	Type     string `json:"type"`
	Contents string `json:"contents"`
}

type saveRequest struct {
	Manifest     Manifest          `json:"manifest"`
	Dependencies map[string]string `json:"dependencies"`
	Code         map[string]File   `json:"code"`
}

type saveResponse struct {
	ID     string `json:"id"`
	HashID string `json:"hashId"`
}

// Snack is a created snack.
type Snack struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Config configures the client.
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
	Manifest  Manifest
	// Dependencies pins the packages the snack runtime installs.
	Dependencies map[string]string
	Retry        RetryConfig
	Circuit      CircuitConfig
	Debug        bool
}

// DefaultConfig returns the configuration used by the editor.
func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		UserAgent: "Mint-IDE/1.0",
		Timeout:   15 * time.Second,
		CacheTTL:  10 * time.Minute,
		Manifest: Manifest{
			Name:        "Mint IDE Preview",
			Description: "Created with Mint - React Native Browser IDE",
			SDKVersion:  "50.0.0",
		},
		Dependencies: map[string]string{
			"expo":            "~50.0.0",
			"expo-status-bar": "~1.11.1",
			"react":           "18.2.0",
			"react-native":    "0.73.4",
		},
		Retry:   DefaultRetryConfig(),
		Circuit: DefaultCircuitConfig(),
	}
}

// Client creates snacks.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitBreaker
	cache   *cache.Memory[*Snack]
}

// New creates a client. Zero fields in cfg take their defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Manifest == (Manifest{}) {
		cfg.Manifest = def.Manifest
	}
	if cfg.Dependencies == nil {
		cfg.Dependencies = def.Dependencies
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = def.Retry
	}
	if cfg.Circuit == (CircuitConfig{}) {
		cfg.Circuit = def.Circuit
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newCircuitBreaker(cfg.Endpoint, cfg.Circuit),
		cache:   cache.New[*Snack](),
	}
}

// Close releases the client's cache.
func (c *Client) Close() {
	c.cache.Stop()
}

// Create publishes code as fileName (App.js when empty) and returns the snack
// id with its default embed URL. Identical requests within the cache TTL
// return the earlier snack.
func (c *Client) Create(ctx context.Context, code, fileName string) (*Snack, error) {
	if code == "" {
		return nil, errors.New("snack: no code to publish")
	}
	if fileName == "" {
		fileName = defaultFileName
	}

	key := cacheKey(fileName, code)
	if c.cfg.CacheTTL > 0 {
		if s, ok := c.cache.Get(key); ok {
			if c.cfg.Debug {
				log.Printf("[Snack] Cache hit for %s", s.ID)
			}
			return s, nil
		}
	}

	body, err := json.Marshal(saveRequest{
		Manifest:     c.cfg.Manifest,
		Dependencies: c.cfg.Dependencies,
		Code:         map[string]File{fileName: {Type: "CODE", Contents: code}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode snack request: %w", err)
	}

	s, err := withRetry(ctx, c.cfg.Retry, func(ctx context.Context) (*Snack, error) {
		return c.breaker.execute(ctx, func(ctx context.Context) (*Snack, error) {
			return c.save(ctx, body)
		})
	})
	if err != nil {
		return nil, err
	}

	if c.cfg.CacheTTL > 0 {
		c.cache.Set(key, s, c.cfg.CacheTTL)
	}
	if c.cfg.Debug {
		log.Printf("[Snack] Created %s", s.ID)
	}
	return s, nil
}

func (c *Client) save(ctx context.Context, body []byte) (*Snack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build snack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Snack-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newRequestError("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(text)}
	}

	var out saveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newRequestError("decode", err)
	}
	id := out.HashID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return nil, &RequestError{Op: "decode", Err: errors.New("response carries no snack id")}
	}
	return &Snack{
		ID:  id,
		URL: EmbedURL(id, EmbedOptions{Platform: "ios", Preview: Bool(true), Theme: "dark"}),
	}, nil
}

// State reports the circuit breaker state.
func (c *Client) State() CircuitState {
	return c.breaker.State()
}

func cacheKey(fileName, code string) string {
	h := sha256.New()
	io.WriteString(h, fileName)
	h.Write([]byte{0})
	io.WriteString(h, code)
	return hex.EncodeToString(h.Sum(nil))
}

// EmbedOptions are the optional query parameters of an embed URL.
type EmbedOptions struct {
	Platform string
	Preview  *bool
	Theme    string
}

// Bool returns a pointer to b, for EmbedOptions.Preview.
func Bool(b bool) *bool {
	return &b
}

// EmbedURL returns the embeddable URL of snack id.
func EmbedURL(id string, opts EmbedOptions) string {
	q := url.Values{}
	if opts.Platform != "" {
		q.Set("platform", opts.Platform)
	}
	if opts.Preview != nil {
		q.Set("preview", strconv.FormatBool(*opts.Preview))
	}
	if opts.Theme != "" {
		q.Set("theme", opts.Theme)
	}
	u := EmbedBase + "/" + url.PathEscape(id)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
