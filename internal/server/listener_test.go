package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/toplikes/internal/shared"
)

func startListener(t *testing.T, state string) *Listener {
	t.Helper()
	l, err := Listen(ListenerOptions{Host: "127.0.0.1", Port: 0, Path: "/callback", State: state})
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	t.Cleanup(func() { l.Stop() })
	return l
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func waitResult(t *testing.T, l *Listener) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.Wait(ctx)
}

func TestListener(t *testing.T) {
	t.Run("Listen", func(t *testing.T) {
		t.Run("rejects non-loopback hosts", func(t *testing.T) {
			for _, host := range []string{"0.0.0.0", "", "192.168.1.10", "example.com", "::"} {
				if _, err := Listen(ListenerOptions{Host: host, Path: "/callback"}); !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("host %q: expected ErrInvalidConfig, got %v", host, err)
				}
			}
		})

		t.Run("rejects relative path", func(t *testing.T) {
			if _, err := Listen(ListenerOptions{Host: "127.0.0.1", Path: "callback"}); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("reports occupied port as authorization error", func(t *testing.T) {
			first := startListener(t, "")
			_, err := Listen(ListenerOptions{Host: "127.0.0.1", Port: first.Port(), Path: "/callback"})
			if !errors.Is(err, shared.ErrAuthorization) {
				t.Errorf("expected ErrAuthorization, got %v", err)
			}
		})

		t.Run("redirect URI uses bound port", func(t *testing.T) {
			l := startListener(t, "")
			if l.Port() == 0 {
				t.Fatal("expected ephemeral port to be assigned")
			}
			want := "http://" + l.Addr().String() + "/callback"
			if l.RedirectURI() != want {
				t.Errorf("expected redirect URI %s, got %s", want, l.RedirectURI())
			}
		})
	})

	t.Run("first code wins", func(t *testing.T) {
		l := startListener(t, "")

		status, body := get(t, l.RedirectURI()+"?code=first")
		if status != http.StatusOK || !strings.Contains(body, "Authorization Successful") {
			t.Errorf("expected success page, got %d %q", status, body)
		}

		status, body = get(t, l.RedirectURI()+"?code=second")
		if status != http.StatusOK || !strings.Contains(body, "Already Handled") {
			t.Errorf("expected duplicate acknowledgement, got %d %q", status, body)
		}

		code, err := waitResult(t, l)
		if err != nil {
			t.Fatalf("expected code, got error %v", err)
		}
		if code != "first" {
			t.Errorf("expected code 'first', got %q", code)
		}
	})

	t.Run("concurrent callbacks resolve once", func(t *testing.T) {
		l := startListener(t, "")

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := http.Get(l.RedirectURI() + "?code=concurrent")
				if err != nil {
					t.Errorf("request failed: %v", err)
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					t.Errorf("expected 200, got %d", resp.StatusCode)
				}
			}()
		}
		wg.Wait()

		results := 0
		for range l.Result() {
			results++
		}
		if results != 1 {
			t.Errorf("expected exactly one result, got %d", results)
		}
	})

	t.Run("missing code fails with callback error", func(t *testing.T) {
		l := startListener(t, "")

		status, body := get(t, l.RedirectURI()+"?foo=bar")
		if status != http.StatusOK || !strings.Contains(body, "Authorization Failed") {
			t.Errorf("expected failure page with 200, got %d %q", status, body)
		}

		if _, err := waitResult(t, l); !errors.Is(err, shared.ErrCallback) {
			t.Errorf("expected ErrCallback, got %v", err)
		}

		if err := l.Stop(); err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}

		if _, err := http.Get(l.RedirectURI()); err == nil {
			t.Error("expected connection to fail after Stop")
		}
	})

	t.Run("state mismatch fails with callback error", func(t *testing.T) {
		l := startListener(t, "expected-state")

		get(t, l.RedirectURI()+"?code=abc&state=other")

		if _, err := waitResult(t, l); !errors.Is(err, shared.ErrCallback) {
			t.Errorf("expected ErrCallback, got %v", err)
		}
	})

	t.Run("matching state yields code", func(t *testing.T) {
		l := startListener(t, "expected-state")

		get(t, l.RedirectURI()+"?code=abc&state=expected-state")

		if code, err := waitResult(t, l); err != nil || code != "abc" {
			t.Errorf("expected code abc, got %q, %v", code, err)
		}
	})

	t.Run("other paths are not captured", func(t *testing.T) {
		l := startListener(t, "")

		status, _ := get(t, "http://"+l.Addr().String()+"/favicon.ico")
		if status != http.StatusNotFound {
			t.Errorf("expected 404 for unrelated path, got %d", status)
		}

		select {
		case res := <-l.Result():
			t.Errorf("expected no result, got %+v", res)
		default:
		}
	})

	t.Run("Stop", func(t *testing.T) {
		t.Run("before any request resolves with callback error", func(t *testing.T) {
			l := startListener(t, "")

			if err := l.Stop(); err != nil {
				t.Fatalf("unexpected stop error: %v", err)
			}

			if _, err := waitResult(t, l); !errors.Is(err, shared.ErrCallback) {
				t.Errorf("expected ErrCallback, got %v", err)
			}
		})

		t.Run("is idempotent", func(t *testing.T) {
			l := startListener(t, "")
			for i := 0; i < 3; i++ {
				if err := l.Stop(); err != nil {
					t.Errorf("stop %d: unexpected error %v", i+1, err)
				}
			}
		})

		t.Run("keeps the resolved code", func(t *testing.T) {
			l := startListener(t, "")
			get(t, l.RedirectURI()+"?code=kept")
			l.Stop()

			if code, err := waitResult(t, l); err != nil || code != "kept" {
				t.Errorf("expected code kept, got %q, %v", code, err)
			}
		})
	})

	t.Run("Wait", func(t *testing.T) {
		t.Run("returns context error when cancelled", func(t *testing.T) {
			l := startListener(t, "")
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("second wait reports consumed result", func(t *testing.T) {
			l := startListener(t, "")
			get(t, l.RedirectURI()+"?code=once")

			if _, err := waitResult(t, l); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := waitResult(t, l); !errors.Is(err, shared.ErrCallback) {
				t.Errorf("expected ErrCallback on second wait, got %v", err)
			}
		})
	})
}

func TestCallbackHandler(t *testing.T) {
	tc := []struct {
		name     string
		target   string
		state    string
		wantCode string
		wantErr  string
	}{
		{name: "code present", target: "/callback?code=xyz", wantCode: "xyz"},
		{name: "missing code", target: "/callback", wantErr: "missing code"},
		{name: "provider error", target: "/callback?error=access_denied&error_description=user+said+no", wantErr: "access_denied user said no"},
		{name: "malformed query", target: "/callback?code=abc;x=1", wantErr: "malformed query"},
		{name: "missing state", target: "/callback?code=abc", state: "s1", wantErr: "invalid state"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCallbackHandler("/callback", tt.state, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}

			res := <-h.Result()
			if tt.wantErr != "" {
				if !errors.Is(res.Err, shared.ErrCallback) {
					t.Fatalf("expected ErrCallback, got %v", res.Err)
				}
				if !strings.Contains(res.Err.Error(), tt.wantErr) {
					t.Errorf("expected error to contain %q, got %v", tt.wantErr, res.Err)
				}
				return
			}
			if res.Err != nil || res.Code != tt.wantCode {
				t.Errorf("expected code %q, got %+v", tt.wantCode, res)
			}
		})
	}

	t.Run("Send reports whether it resolved", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "", nil)
		if !h.Send(CallbackResult{Code: "a"}) {
			t.Error("first Send should resolve")
		}
		if h.Send(CallbackResult{Code: "b"}) {
			t.Error("second Send should be ignored")
		}
	})
}
