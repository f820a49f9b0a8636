package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is echoed back.
const maxErrorBody = 512

// ErrUnsupportedProvider is returned by New for an unknown backend name.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// UpstreamError reports a failed call to the LLM backend: transport failure,
// timeout, non-2xx status or an unexpected response shape.
type UpstreamError struct {
	Provider   string // display name, e.g. "OpenAI"
	StatusCode int    // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Supported lists the backend names New accepts.
func Supported() []string {
	return []string{"openai", "anthropic"}
}

// New builds the backend named in s. Names are case-insensitive; an unknown
// name returns ErrUnsupportedProvider.
func New(s Settings) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s.Name)) {
	case "openai":
		return NewOpenAI(s), nil
	case "anthropic":
		return NewAnthropic(s), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedProvider, s.Name, strings.Join(Supported(), ", "))
	}
}

// client holds the HTTP plumbing shared by both backends.
type client struct {
	name        string // configuration name
	displayName string // used in error messages
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	headers     map[string]string
}

func newClient(s Settings, name, displayName, defaultBaseURL string, headers map[string]string) client {
	c := client{
		name:        name,
		displayName: displayName,
		model:       s.Model,
		baseURL:     strings.TrimRight(defaultBaseURL, "/"),
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
		timeout:     s.Timeout,
		httpClient:  s.HTTPClient,
		headers:     headers,
	}
	if s.BaseURL != "" {
		c.baseURL = strings.TrimRight(s.BaseURL, "/")
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		// The per-call context carries the deadline.
		c.httpClient = &http.Client{}
	}
	return c
}

func (c *client) Name() string  { return c.name }
func (c *client) Model() string { return c.model }

// post sends payload as JSON to path and decodes a 2xx response into out.
// Every failure comes back as *UpstreamError.
func (c *client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.fail(0, "marshaling request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return c.fail(0, "creating request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return c.fail(0, fmt.Sprintf("request timed out after %s", c.timeout), context.DeadlineExceeded)
		}
		return c.fail(0, "executing request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Provider:   c.displayName,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return c.fail(0, "decoding response", err)
	}
	return nil
}

func (c *client) fail(status int, what string, err error) *UpstreamError {
	return &UpstreamError{
		Provider:   c.displayName,
		StatusCode: status,
		Message:    fmt.Sprintf("%s: %v", what, err),
		Err:        err,
	}
}

// errorMessage extracts error.message from a vendor error envelope, falling
// back to the (truncated) raw body.
func errorMessage(body []byte) string {
	var env apiErrorBody
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = "empty error response"
	}
	return msg
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx so outbound calls carry an X-Request-ID header.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the ID set by ContextWithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
