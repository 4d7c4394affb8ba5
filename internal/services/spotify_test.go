package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/shared"
	tu "github.com/desertthunder/toplikes/internal/testing"
)

// library serves /me/tracks from a fixed number of saved tracks and records every request.
type library struct {
	total   int
	failAt  int // offset that answers failStatus, -1 for never
	status  int
	nullAt  map[int]bool
	mu      sync.Mutex
	offsets []int
	limits  []int
	auth    []string
}

func newLibrary(total int) *library {
	return &library{total: total, failAt: -1, nullAt: map[int]bool{}}
}

func (l *library) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/me/tracks" {
		http.NotFound(w, r)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	l.mu.Lock()
	l.offsets = append(l.offsets, offset)
	l.limits = append(l.limits, limit)
	l.auth = append(l.auth, r.Header.Get("Authorization"))
	l.mu.Unlock()

	if offset == l.failAt {
		w.WriteHeader(l.status)
		fmt.Fprintf(w, `{"error":{"status":%d,"message":"failure at %d"}}`, l.status, offset)
		return
	}

	page := SpotifyPaginatedTracks{Total: l.total, Limit: limit, Offset: offset}
	for i := offset; i < min(offset+limit, l.total); i++ {
		item := SpotifySavedTrack{AddedAt: "2024-01-01T00:00:00Z"}
		if !l.nullAt[i] {
			item.Track = &SpotifyTrack{
				ID:      fmt.Sprintf("t%d", i),
				Name:    fmt.Sprintf("Track %d", i),
				Artists: []SpotifyArtist{{ID: fmt.Sprintf("a%d", i%3), Name: fmt.Sprintf("Artist %d", i%3)}},
			}
		}
		page.Items = append(page.Items, item)
	}
	if offset+limit < l.total {
		next := fmt.Sprintf("http://%s/me/tracks?offset=%d&limit=%d", r.Host, offset+limit, limit)
		page.Next = &next
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (l *library) Offsets() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.offsets...)
}

func newTestService(t *testing.T, h http.Handler, opts SpotifyOptions) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	if opts.Token.Value == "" {
		opts.Token = models.AccessToken{Value: "test-token", TokenType: "Bearer"}
	}
	return NewSpotifyService(opts)
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("AllSavedTracks", func(t *testing.T) {
		t.Run("walks every page in order", func(t *testing.T) {
			lib := newLibrary(107)
			srv := newTestService(t, lib, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != 107 {
				t.Fatalf("expected 107 tracks, got %d", len(tracks))
			}
			for i, track := range tracks {
				if want := fmt.Sprintf("t%d", i); track.ID != want {
					t.Fatalf("track %d: expected %s, got %s", i, want, track.ID)
				}
			}

			offsets := lib.Offsets()
			want := []int{0, 50, 100}
			if fmt.Sprint(offsets) != fmt.Sprint(want) {
				t.Errorf("expected offsets %v, got %v", want, offsets)
			}
			for _, limit := range lib.limits {
				if limit != PageSize {
					t.Errorf("expected limit %d, got %d", PageSize, limit)
				}
			}
		})

		t.Run("sends bearer token", func(t *testing.T) {
			lib := newLibrary(3)
			srv := newTestService(t, lib, SpotifyOptions{Token: models.AccessToken{Value: "abc", TokenType: "bearer"}})

			if _, err := srv.AllSavedTracks(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(lib.auth) != 1 || lib.auth[0] != "Bearer abc" {
				t.Errorf("unexpected Authorization headers %v", lib.auth)
			}
		})

		t.Run("empty library", func(t *testing.T) {
			lib := newLibrary(0)
			srv := newTestService(t, lib, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tracks == nil || len(tracks) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", tracks)
			}
			if len(lib.Offsets()) != 1 {
				t.Errorf("expected one request, got %d", len(lib.Offsets()))
			}
		})

		t.Run("failure on second page discards results", func(t *testing.T) {
			lib := newLibrary(107)
			lib.failAt, lib.status = 50, http.StatusInternalServerError
			srv := newTestService(t, lib, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if tracks != nil {
				t.Errorf("expected nil tracks, got %d", len(tracks))
			}
			if !errors.Is(err, shared.ErrFetch) {
				t.Fatalf("expected ErrFetch, got %v", err)
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %T", err)
			}
			if fetchErr.Offset != 50 || fetchErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("unexpected error detail %+v", fetchErr)
			}
			if fetchErr.Message != "failure at 50" {
				t.Errorf("expected API message, got %q", fetchErr.Message)
			}
			if errors.Is(err, shared.ErrNotAuthenticated) {
				t.Error("500 must not match ErrNotAuthenticated")
			}
			if got := len(lib.Offsets()); got != 2 {
				t.Errorf("expected no further requests after the failure, got %d", got)
			}
		})

		t.Run("unauthorized", func(t *testing.T) {
			lib := newLibrary(10)
			lib.failAt, lib.status = 0, http.StatusUnauthorized
			srv := newTestService(t, lib, SpotifyOptions{})

			_, err := srv.AllSavedTracks(ctx)
			if !errors.Is(err, shared.ErrNotAuthenticated) || !errors.Is(err, shared.ErrFetch) {
				t.Fatalf("expected ErrNotAuthenticated and ErrFetch, got %v", err)
			}
		})

		t.Run("empty page with next ends the walk", func(t *testing.T) {
			var calls int
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"items":[],"total":500,"limit":50,"offset":0,"next":"http://%s/me/tracks?offset=50"}`, r.Host)
			})
			srv := newTestService(t, h, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 0 || calls != 1 {
				t.Errorf("expected 0 tracks from 1 call, got %d from %d", len(tracks), calls)
			}
		})

		t.Run("offset advances by items received", func(t *testing.T) {
			var mu sync.Mutex
			var offsets []string
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				offsets = append(offsets, r.URL.Query().Get("offset"))
				n := len(offsets)
				mu.Unlock()

				w.Header().Set("Content-Type", "application/json")
				if n == 1 {
					fmt.Fprintf(w, `{"items":[{"track":{"id":"x","name":"X","artists":[]}},{"track":{"id":"y","name":"Y","artists":[]}}],"next":"http://%s/next"}`, r.Host)
					return
				}
				fmt.Fprint(w, `{"items":[{"track":{"id":"z","name":"Z","artists":[]}}],"next":null}`)
			})
			srv := newTestService(t, h, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 3 {
				t.Errorf("expected 3 tracks, got %d", len(tracks))
			}
			if fmt.Sprint(offsets) != "[0 2]" {
				t.Errorf("expected offsets [0 2], got %v", offsets)
			}
		})

		t.Run("null tracks are skipped", func(t *testing.T) {
			lib := newLibrary(5)
			lib.nullAt[1], lib.nullAt[3] = true, true
			srv := newTestService(t, lib, SpotifyOptions{})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 3 {
				t.Errorf("expected 3 tracks, got %d", len(tracks))
			}
		})

		t.Run("MaxPages bounds the walk", func(t *testing.T) {
			lib := newLibrary(500)
			srv := newTestService(t, lib, SpotifyOptions{MaxPages: 2})

			tracks, err := srv.AllSavedTracks(ctx)
			if !errors.Is(err, shared.ErrFetch) {
				t.Fatalf("expected ErrFetch, got %v", err)
			}
			if tracks != nil {
				t.Errorf("expected no partial library, got %d tracks", len(tracks))
			}
			if got := lib.Offsets(); len(got) != 2 {
				t.Errorf("expected the walk to stop after 2 pages, got offsets %v", got)
			}
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && fetchErr.Offset != 100 {
				t.Errorf("expected offset 100, got %d", fetchErr.Offset)
			}
		})

		t.Run("MaxPages equal to the library size succeeds", func(t *testing.T) {
			lib := newLibrary(100)
			srv := newTestService(t, lib, SpotifyOptions{MaxPages: 2})

			tracks, err := srv.AllSavedTracks(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 100 {
				t.Errorf("expected 100 tracks, got %d", len(tracks))
			}
		})

		t.Run("malformed body", func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			})
			srv := newTestService(t, h, SpotifyOptions{})

			_, err := srv.AllSavedTracks(ctx)
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fetchErr.StatusCode != 0 {
				t.Errorf("expected no status on decode failure, got %d", fetchErr.StatusCode)
			}
		})

		t.Run("cancelled context", func(t *testing.T) {
			lib := newLibrary(10)
			srv := newTestService(t, lib, SpotifyOptions{})

			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := srv.AllSavedTracks(cctx)
			if !errors.Is(err, context.Canceled) || !errors.Is(err, shared.ErrFetch) {
				t.Fatalf("expected context.Canceled and ErrFetch, got %v", err)
			}
		})

		t.Run("rate limit paces requests", func(t *testing.T) {
			lib := newLibrary(150)
			srv := newTestService(t, lib, SpotifyOptions{RateLimit: 20})

			start := time.Now()
			if _, err := srv.AllSavedTracks(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			// burst of 1 at 20/s: three requests need at least two 50ms gaps
			if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
				t.Errorf("expected paced requests, finished in %s", elapsed)
			}
		})
	})

	t.Run("SavedTracks", func(t *testing.T) {
		tests := []struct {
			name      string
			limit     int
			wantLimit int
		}{
			{"zero clamps up", 0, 1},
			{"negative clamps up", -5, 1},
			{"in range", 20, 20},
			{"above max clamps down", 100, PageSize},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				lib := newLibrary(200)
				srv := newTestService(t, lib, SpotifyOptions{})

				page, err := srv.SavedTracks(ctx, tt.limit, 0)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if lib.limits[0] != tt.wantLimit {
					t.Errorf("expected limit %d, got %d", tt.wantLimit, lib.limits[0])
				}
				if len(page.Items) != tt.wantLimit {
					t.Errorf("expected %d items, got %d", tt.wantLimit, len(page.Items))
				}
			})
		}

		t.Run("transport failure", func(t *testing.T) {
			srv := NewSpotifyService(SpotifyOptions{
				BaseURL:    "http://example.invalid",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
				Token:      models.AccessToken{Value: "tok"},
			})

			_, err := srv.SavedTracks(ctx, 50, 100)
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fetchErr.Offset != 100 || fetchErr.StatusCode != 0 {
				t.Errorf("unexpected error detail %+v", fetchErr)
			}
		})
	})

	t.Run("unreadable body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: &tu.FCloser{}}
		srv := NewSpotifyService(SpotifyOptions{
			BaseURL:    "http://example.invalid",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)},
			Token:      models.AccessToken{Value: "tok"},
		})

		tracks, err := srv.AllSavedTracks(ctx)
		if tracks != nil || !errors.Is(err, shared.ErrFetch) {
			t.Fatalf("expected nil tracks and ErrFetch, got %v, %v", tracks, err)
		}
	})

	t.Run("SpotifyTrack.Model keeps credit order", func(t *testing.T) {
		track := SpotifyTrack{ID: "t", Name: "Song", Artists: []SpotifyArtist{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}}}
		m := track.Model()
		if len(m.Artists) != 2 || m.Artists[0].ID != "b" || m.Artists[1].ID != "a" {
			t.Errorf("unexpected artists %+v", m.Artists)
		}
	})
}

func TestSpotifyServicePageSize(t *testing.T) {
	lib := newLibrary(25)
	srv := newTestService(t, lib, SpotifyOptions{PageSize: 10})

	tracks, err := srv.AllSavedTracks(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tracks) != 25 {
		t.Errorf("expected 25 tracks, got %d", len(tracks))
	}
	if got := fmt.Sprint(lib.Offsets()); got != "[0 10 20]" {
		t.Errorf("expected offsets [0 10 20], got %s", got)
	}
}
