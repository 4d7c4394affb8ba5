package server

import (
	"crypto/subtle"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/shared"
)

// CallbackResult is the outcome of the authorization redirect: a code or an error, never both.
type CallbackResult struct {
	Code string
	Err  error
}

// CallbackHandler captures the authorization code from the first request on its path.
// Implements the [Handler] interface for registration with a [Router].
type CallbackHandler struct {
	path       string
	state      string
	logger     *log.Logger
	resultChan chan CallbackResult
	once       sync.Once
}

// NewCallbackHandler creates a handler for path. When state is non-empty the redirect must echo it back.
func NewCallbackHandler(path, state string, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &CallbackHandler{
		path:       path,
		state:      state,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the redirect from the identity provider.
//
// Every request gets a 200 acknowledgement page so the browser tab reaches a terminal state;
// only the first one decides the result.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.parse(r)

	if !h.Send(result) {
		h.logger.Warn("ignoring repeated callback request")
		writePage(w, pageDuplicate)
		return
	}

	if result.Err != nil {
		h.logger.Error("callback rejected", "error", result.Err)
		writePage(w, pageFailed)
		return
	}

	h.logger.Info("authorization code received")
	writePage(w, pageSuccess)
}

func (h *CallbackHandler) parse(r *http.Request) CallbackResult {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return CallbackResult{Err: fmt.Errorf("%w: malformed query string: %v", shared.ErrCallback, err)}
	}

	if h.state != "" && subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(h.state)) != 1 {
		return CallbackResult{Err: fmt.Errorf("%w: invalid state parameter", shared.ErrCallback)}
	}

	code := query.Get("code")
	if code == "" {
		if errParam := query.Get("error"); errParam != "" {
			return CallbackResult{Err: fmt.Errorf("%w: provider returned %s %s", shared.ErrCallback, errParam, query.Get("error_description"))}
		}
		return CallbackResult{Err: fmt.Errorf("%w: missing code parameter", shared.ErrCallback)}
	}

	return CallbackResult{Code: code}
}

// Send resolves the result if it has not been resolved yet and reports whether this call did it.
func (h *CallbackHandler) Send(result CallbackResult) bool {
	sent := false
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
		sent = true
	})
	return sent
}

// Result returns the result channel for receiving the callback outcome.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

type page struct {
	Title   string
	Message string
	Color   template.CSS
}

var (
	pageSuccess   = page{Title: "✓ Authorization Successful", Message: "You can close this window and return to the terminal.", Color: "#1DB954"}
	pageFailed    = page{Title: "✗ Authorization Failed", Message: "Return to the terminal for details and run the command again.", Color: "#E22134"}
	pageDuplicate = page{Title: "Authorization Already Handled", Message: "This request was ignored. You can close this window.", Color: "#626262"}
)

var pageTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func writePage(w http.ResponseWriter, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	pageTemplate.Execute(w, p)
}
