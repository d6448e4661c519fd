// Package testutil provides testing utilities for the knowledge base
// clients.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockWiki is a configurable mock API server. Paths can carry a fixed
// response, a handler, or a sequence of responses consumed one per
// request, which is how rate limit and continuation flows are staged.
type MockWiki struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	RequestCount      int
	LastRequestHeader http.Header
	LastQuery         map[string][]string
}

// NewMockWiki creates a new mock API server.
func NewMockWiki() *MockWiki {
	mock := &MockWiki{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.Form
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockWiki) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockWiki) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockWiki) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a path.
func (m *MockWiki) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockWiki) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeMockResponse(w, resp)
	})
}

// SetSequence configures a path to answer with each response in turn.
// The last response repeats once the sequence is consumed.
func (m *MockWiki) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		writeMockResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests the server received.
func (m *MockWiki) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockWiki) defaultHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"batchcomplete":true,"query":{"pages":[]}}`))
}

func writeMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode != 0 {
		w.WriteHeader(resp.StatusCode)
	}
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewQueryResponse creates a 200 OK action API response.
func NewQueryResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCSVResponse creates a 200 OK SPARQL CSV result.
func NewCSVResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/csv; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "rate limit exceeded",
		Headers: map[string]string{
			"Retry-After":  retryAfter,
			"Content-Type": "text/plain",
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"code":"internal_api_error","info":"server error"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
