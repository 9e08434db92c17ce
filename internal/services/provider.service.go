package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"votuna/config"
	"votuna/internal/metrics"
	. "votuna/internal/models"
	"votuna/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ProviderAuthError means the stored provider token is missing, expired or
// revoked. The owner has to reconnect.
type ProviderAuthError struct {
	Provider string
	Message  string
}

func (e *ProviderAuthError) Error() string {
	return e.Message
}

// ProviderAPIError is any non-auth failure reported by the provider.
type ProviderAPIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderAPIError) Error() string {
	return e.Message
}

// ProviderGateway is the only component allowed to change a provider playlist.
type ProviderGateway interface {
	Provider() string
	GetPlaylist(ctx context.Context, playlistID string) (*types.ProviderPlaylist, error)
	ListTracks(ctx context.Context, playlistID string) ([]types.ProviderTrack, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
	TrackExists(ctx context.Context, playlistID string, trackID string) (bool, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]types.ProviderTrack, error)
	ResolveTrackURL(ctx context.Context, trackURL string) (*types.ProviderTrack, error)
	RelatedTracks(ctx context.Context, trackID string, limit, offset int) ([]types.ProviderTrack, error)
}

type ProviderFactory interface {
	// ForUser builds a gateway that acts with the user's provider token.
	ForUser(provider string, user *User) (ProviderGateway, error)
}

type ProviderService struct {
	soundCloudBaseURL string
	spotifyBaseURL    string
	timeout           time.Duration
	requestsPerSecond float64
	limiters          map[string]*rate.Limiter
	mu                sync.Mutex
	log               logger.Logger
}

func NewProviderService(config config.Config) *ProviderService {
	return &ProviderService{
		soundCloudBaseURL: config.SoundCloudAPIBaseURL,
		spotifyBaseURL:    config.SpotifyAPIBaseURL,
		timeout:           time.Duration(config.ProviderTimeoutSeconds) * time.Second,
		requestsPerSecond: config.ProviderRequestsPerSecond,
		limiters:          make(map[string]*rate.Limiter),
		log:               logger.New("providerService"),
	}
}

func (s *ProviderService) ForUser(provider string, user *User) (ProviderGateway, error) {
	log := s.log.Function("ForUser")

	provider = strings.ToLower(strings.TrimSpace(provider))

	var baseURL string
	switch provider {
	case ProviderSoundCloud:
		baseURL = s.soundCloudBaseURL
	case ProviderSpotify:
		baseURL = s.spotifyBaseURL
	default:
		return nil, types.NewValidation(fmt.Sprintf("Unsupported provider: %s", provider))
	}

	if user == nil || !user.HasProviderToken() {
		log.Warn("missing provider token", "provider", provider)
		return nil, &ProviderAuthError{Provider: provider, Message: "Provider authorization expired or invalid"}
	}

	client := newProviderHTTPClient(provider, baseURL, user.AccessToken, s.timeout, s.limiterFor(provider))

	if provider == ProviderSpotify {
		return NewSpotifyService(client), nil
	}
	return NewSoundCloudService(client), nil
}

// limiterFor shares one token bucket per provider across every user's client.
func (s *ProviderService) limiterFor(provider string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[provider]
	if !ok {
		burst := int(s.requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.requestsPerSecond), burst)
		s.limiters[provider] = limiter
	}

	return limiter
}

type providerHTTPClient struct {
	provider string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	log      logger.Logger
}

func newProviderHTTPClient(
	provider string,
	baseURL string,
	token string,
	timeout time.Duration,
	limiter *rate.Limiter,
) *providerHTTPClient {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), source)
	if timeout > 0 {
		client.Timeout = timeout
	}

	return &providerHTTPClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		limiter:  limiter,
		log:      logger.New("providerHTTPClient").With("provider", provider),
	}
}

// do sends one request and decodes a JSON response into out when out is not nil.
// Absolute URLs are used as-is so paginated "next" links can be followed.
func (c *providerHTTPClient) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	out any,
) error {
	log := c.log.Function("do")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return log.Err("provider rate limiter wait failed", err, "path", path)
		}
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return log.Err("failed to marshal provider request", err, "path", path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return log.Err("failed to create provider request", err, "path", path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveProviderRequest(c.provider, method, 0, started)
		log.Er("provider request failed", err, "method", method, "path", path)
		return &ProviderAPIError{
			Provider:   c.provider,
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("%s request failed: %v", c.provider, err),
		}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn("Failed to close response body", "error", closeErr)
		}
	}()
	metrics.ObserveProviderRequest(c.provider, method, resp.StatusCode, started)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return log.Err("failed to read provider response", err, "path", path)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Warn("provider auth error", "method", method, "path", path, "status", resp.StatusCode)
		return &ProviderAuthError{
			Provider: c.provider,
			Message:  fmt.Sprintf("%s authorization expired or invalid", c.provider),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := fmt.Sprintf("%s API error (%d)", c.provider, resp.StatusCode)
		if detail := extractProviderMessage(data); detail != "" {
			message += ": " + detail
		}
		log.Warn("provider API error", "method", method, "path", path, "status", resp.StatusCode, "message", message)
		return &ProviderAPIError{Provider: c.provider, StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		log.Er("failed to decode provider response", err, "path", path)
		return &ProviderAPIError{
			Provider:   c.provider,
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("%s returned an unexpected payload", c.provider),
		}
	}

	return nil
}

func extractProviderMessage(data []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	if len(payload.Error) > 0 {
		var asString string
		if err := json.Unmarshal(payload.Error, &asString); err == nil && asString != "" {
			return truncate(asString, 600)
		}
		var asObject struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &asObject); err == nil && asObject.Message != "" {
			return truncate(asObject.Message, 600)
		}
	}
	if payload.Message != "" {
		return truncate(payload.Message, 600)
	}
	return truncate(payload.Detail, 600)
}

func truncate(value string, maxChars int) string {
	value = strings.TrimSpace(value)
	if len(value) <= maxChars {
		return value
	}
	return value[:maxChars] + "..."
}

func clampLimit(limit, minimum, maximum int) int {
	if limit < minimum {
		return minimum
	}
	if limit > maximum {
		return maximum
	}
	return limit
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
