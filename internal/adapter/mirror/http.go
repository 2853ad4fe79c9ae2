package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/retry"
)

var _ port.Mirror = (*HTTPMirror)(nil)

var ErrRejected = errors.New("rejected by remote")

type Opt func(*HTTPMirror) error

func ClientOpt(cl *http.Client) Opt {
	return func(m *HTTPMirror) error {
		if cl == nil {
			return errors.New("http client is nil")
		}
		m.cl = cl
		return nil
	}
}

// RetryOpt enables up to attempts deliveries per document.
func RetryOpt(attempts int, backoff time.Duration) Opt {
	return func(m *HTTPMirror) error {
		if attempts < 1 {
			return fmt.Errorf("invalid attempts %d", attempts)
		}
		if attempts > 1 && backoff <= 0 {
			return fmt.Errorf("invalid backoff %s", backoff)
		}
		m.retryCfg.MaxAttempts = attempts
		m.retryCfg.Backoff = retry.ExponentialBackoff(backoff)
		return nil
	}
}

// An HTTPMirror posts the product document to the remote save endpoint.
// Any non-2xx response is a failed delivery.
type HTTPMirror struct {
	url      string
	cl       *http.Client
	retryCfg retry.RetryConfig
}

func NewHTTPMirror(url string, opts ...Opt) (*HTTPMirror, error) {
	const op = "NewHTTPMirror"

	if url == "" {
		return nil, fmt.Errorf("%s: url is empty", op)
	}

	m := &HTTPMirror{
		url: url,
		cl:  &http.Client{Timeout: 10 * time.Second},
		retryCfg: retry.RetryConfig{
			MaxAttempts: 1,
			ShouldRetry: func(err error) bool {
				return !errors.Is(err, ErrRejected)
			},
		},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return m, nil
}

func (m *HTTPMirror) MirrorDocument(ctx context.Context, doc domain.Document) error {
	const op = "HTTPMirror.MirrorDocument"

	body, err := codec.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = retry.Do(ctx, m.retryCfg, func() error {
		return m.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *HTTPMirror) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, m.url, bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := m.cl.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode >= 500:
		return fmt.Errorf("remote status %d", res.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
	}
}
