// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// CallbackBrowser stands in for the system browser. On Open it follows the authorize URL's
// redirect_uri the way the identity provider would after the user approves.
type CallbackBrowser struct {
	Code   string              // code to deliver; empty sends a callback without one
	Params url.Values          // extra callback parameters, e.g. error=access_denied
	Silent bool                // record the URL but never call back
	Err    error               // returned from Open
	Done   chan *http.Response // receives the callback response when non-nil
	mu     sync.Mutex
	urls   []string
}

// Open records rawURL and, unless Silent, delivers the callback from a separate goroutine.
func (b *CallbackBrowser) Open(rawURL string) error {
	b.mu.Lock()
	b.urls = append(b.urls, rawURL)
	b.mu.Unlock()

	if b.Silent {
		return b.Err
	}

	authURL, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	query := authURL.Query()
	callback := url.Values{}
	if state := query.Get("state"); state != "" {
		callback.Set("state", state)
	}
	if b.Code != "" {
		callback.Set("code", b.Code)
	}
	for k, vs := range b.Params {
		callback[k] = vs
	}

	target := query.Get("redirect_uri") + "?" + callback.Encode()
	go func() {
		resp, err := http.Get(target)
		if err != nil {
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if b.Done != nil {
			b.Done <- resp
		}
	}()

	return b.Err
}

// URLs returns every URL passed to Open.
func (b *CallbackBrowser) URLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

// LastURL parses the most recent URL passed to Open.
func (b *CallbackBrowser) LastURL(t *testing.T) *url.URL {
	t.Helper()
	urls := b.URLs()
	if len(urls) == 0 {
		t.Fatal("browser was never opened")
	}
	u, err := url.Parse(urls[len(urls)-1])
	if err != nil {
		t.Fatalf("failed to parse authorize URL: %v", err)
	}
	return u
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
