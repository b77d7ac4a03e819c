// Package spotify resolves music genre labels to Spotify playlists.
package spotify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/vocalis/internal/core/ports"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	market      string
	maxRetries  int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// compile-time interface assertion
var _ ports.PlaylistFinder = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithRetry sets how many times a failed request is retried and the base
// of the exponential backoff. Zero disables retries.
func WithRetry(maxRetries int, baseBackoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseBackoff = baseBackoff
	}
}

// WithMarket restricts search results to an ISO country code.
func WithMarket(market string) Option {
	return func(c *Client) { c.market = market }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a new Spotify client around an already
// authenticated http.Client.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: defaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientCredentials authenticates with the client-credentials flow.
// Tokens are fetched lazily and refreshed by the returned client; ctx
// governs token requests.
func NewClientCredentials(ctx context.Context, clientID, clientSecret, tokenURL, baseURL string, opts ...Option) *Client {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = 15 * time.Second
	return NewClient(httpClient, baseURL, opts...)
}
