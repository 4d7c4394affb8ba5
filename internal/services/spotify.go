// Spotify Web API client for the saved-tracks library
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/get-users-saved-tracks
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	SpotifyBaseURL = "https://api.spotify.com/v1"

	// PageSize is the largest page /me/tracks will return.
	PageSize = 50

	defaultRequestTimeout = 30 * time.Second
)

// SpotifyArtist is the simplified artist object attached to a track.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack is the subset of the track object used for ranking.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifySavedTrack is one item of the saved-tracks page. Track is nil when the API returns null,
// which happens for tracks that are no longer available.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// HasNext reports whether the API advertised another page.
func (p *SpotifyPaginatedTracks) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// Tracks converts the page's items to [models.Track], skipping null tracks.
func (p *SpotifyPaginatedTracks) Tracks() []models.Track {
	tracks := make([]models.Track, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, item.Track.Model())
	}
	return tracks
}

// Model maps the API track to the domain type, keeping artist credit order.
func (t SpotifyTrack) Model() models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name})
	}
	return models.Track{ID: t.ID, Name: t.Name, Artists: artists}
}

// spotifyErrorBody is the regular error object of the Web API.
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchError describes a failed page request.
//
// It matches [shared.ErrFetch] with [errors.Is], and [shared.ErrNotAuthenticated] when the API answered 401.
type FetchError struct {
	Offset     int
	StatusCode int    // 0 when no response was received
	Message    string // API error message, when the body carried one
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s at offset %d", shared.ErrFetch, e.Offset)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case shared.ErrFetch:
		return true
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// SpotifyOptions configures a [SpotifyService].
type SpotifyOptions struct {
	BaseURL    string
	HTTPClient *http.Client // timeout and base transport are reused; the bearer transport wraps it
	Token      models.AccessToken
	PageSize   int     // items per page, clamped to 1..[PageSize]; 0 means [PageSize]
	RateLimit  float64 // page requests per second, 0 means unlimited
	MaxPages   int     // 0 means no bound; hitting the bound with pages left is an error
	Logger     *log.Logger
}

// SpotifyService reads the authenticated user's library from the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	maxPages   int
	logger     *log.Logger
}

// NewSpotifyService creates a service whose requests carry opts.Token as a bearer credential.
func NewSpotifyService(opts SpotifyOptions) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.PageSize <= 0 || opts.PageSize > PageSize {
		opts.PageSize = PageSize
	}

	timeout := defaultRequestTimeout
	var base http.RoundTripper
	if opts.HTTPClient != nil {
		timeout = opts.HTTPClient.Timeout
		base = opts.HTTPClient.Transport
	}

	token := &oauth2.Token{
		AccessToken: opts.Token.Value,
		TokenType:   opts.Token.TokenType,
		Expiry:      opts.Token.Expiry,
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &SpotifyService{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: base},
		},
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		logger:   opts.Logger,
	}
}

// doRequest performs an authenticated GET against the Web API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr spotifyErrorBody
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return resp.StatusCode, errors.New(apiErr.Error.Message)
		}
		return resp.StatusCode, fmt.Errorf("spotify API error: %s", http.StatusText(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// SavedTracks retrieves one page of the user's saved tracks. limit is clamped to 1..[PageSize].
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	limit = max(1, min(limit, PageSize))
	offset = max(0, offset)

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Offset: offset, Err: err}
	}

	var page SpotifyPaginatedTracks
	status, err := s.doRequest(ctx, "/me/tracks?"+query.Encode(), &page)
	if err != nil {
		fetchErr := &FetchError{Offset: offset, Err: err}
		if status != 0 && (status < 200 || status >= 300) {
			fetchErr.StatusCode = status
			fetchErr.Message = err.Error()
		}
		return nil, fetchErr
	}

	return &page, nil
}

// AllSavedTracks walks the saved-tracks collection from offset 0 one page at a time.
//
// The offset advances by the number of items actually received. The walk ends when the API reports no
// next page or when a page comes back empty. Reading MaxPages pages while more remain is a failure, so a
// partial library is never returned. On any failure the tracks gathered so far are discarded and a
// [*FetchError] is returned.
func (s *SpotifyService) AllSavedTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	offset, pages := 0, 0

	for {
		page, err := s.SavedTracks(ctx, s.pageSize, offset)
		if err != nil {
			s.logger.Error("saved tracks request failed", "offset", offset, "error", err)
			return nil, err
		}
		pages++

		tracks = append(tracks, page.Tracks()...)
		s.logger.Debug("fetched saved tracks page", "offset", offset, "items", len(page.Items), "total", page.Total)

		if len(page.Items) == 0 || !page.HasNext() {
			break
		}
		offset += len(page.Items)
		if s.maxPages > 0 && pages >= s.maxPages {
			s.logger.Error("page limit reached before the last page", "pages", pages, "total", page.Total)
			return nil, &FetchError{Offset: offset, Err: fmt.Errorf("page limit %d reached before the last page", s.maxPages)}
		}
	}

	if tracks == nil {
		tracks = []models.Track{}
	}

	s.logger.Info("fetched saved tracks", "tracks", len(tracks), "pages", pages)
	return tracks, nil
}
