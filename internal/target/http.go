// Package target builds TargetFunc implementations for the load engine. The
// engine core is target-agnostic; this package supplies the HTTP adapter the
// CLI drives real endpoints with.
package target

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"surge/internal/runner"
)

// Failure categories produced by the HTTP target. HTTP status failures use
// the "HTTP <code>" form.
const (
	KindTimeout    = "Timeout"
	KindConnection = "Connection"
)

// HTTPConfig describes a fixed HTTP request to drive under load.
type HTTPConfig struct {
	URL     string
	Method  string
	Body    string
	Headers map[string]string
	Timeout time.Duration
}

// NewHTTP returns a TargetFunc issuing the configured request. When the
// payload is a non-empty string or []byte it replaces the configured body, so
// a scenario's payload generator can vary the request per call.
func NewHTTP(cfg HTTPConfig) runner.TargetFunc {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}

	return func(ctx context.Context, payload any) error {
		body := cfg.Body
		switch p := payload.(type) {
		case string:
			if p != "" {
				body = p
			}
		case []byte:
			if len(p) > 0 {
				body = string(p)
			}
		}

		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, reader)
		if err != nil {
			return runner.NewOpError(KindConnection, err)
		}
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return classify(err)
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			return runner.NewOpError(
				fmt.Sprintf("HTTP %d", resp.StatusCode),
				fmt.Errorf("%s %s returned %s", cfg.Method, cfg.URL, resp.Status),
			)
		}
		return nil
	}
}

func classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return runner.NewOpError(KindTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return runner.NewOpError(KindTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return runner.NewOpError(KindTimeout, err)
	}
	return runner.NewOpError(KindConnection, err)
}
