package remote

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

	"go.uber.org/zap"

	"github.com/erp/doclink/internal/domain/lineage"
)

// maxResponseSize is the maximum allowed response size from the remote
// document store (10MB). Single documents can carry hundreds of lines.
const maxResponseSize = 10 * 1024 * 1024

// Client performs typed queries against the remote document store. It
// attaches the current session to every call and recovers from a rejected
// session with exactly one re-login and retry; a second consecutive
// rejection surfaces as a remote error.
type Client struct {
	cfg        *Config
	sessions   *SessionManager
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client on top of a session manager. Call deadlines
// are applied per operation, not on the underlying HTTP client.
func NewClient(cfg *Config, sessions *SessionManager, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		sessions:   sessions,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Query fetches a page of documents from a collection. Only header fields
// are populated; use GetByID for lines.
func (c *Client) Query(ctx context.Context, collection string, q lineage.Query) ([]lineage.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	if len(q.Select) == 0 {
		q.Select = headerSelectFields
	}
	requestURL := c.cfg.BaseURL + "/" + collection + "?" + encodeQuery(q)

	body, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var envelope queryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s", lineage.ErrMalformedResponse, truncate(body, 512))
	}

	docs := make([]lineage.Document, 0, len(envelope.Value))
	for i := range envelope.Value {
		docs = append(docs, envelope.Value[i].toDomain(collection))
	}
	return docs, nil
}

// GetByID fetches a full document, including its lines, by opaque key.
// Uses the longer fetch deadline since documents may carry many lines.
func (c *Client) GetByID(ctx context.Context, collection string, docEntry int64) (*lineage.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	requestURL := fmt.Sprintf("%s/%s(%d)", c.cfg.BaseURL, collection, docEntry)

	body, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var payload documentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", lineage.ErrMalformedResponse, truncate(body, 512))
	}

	doc := payload.toDomain(collection)
	return &doc, nil
}

// doRequest issues a GET with the current session attached. A response
// reporting the session as expired invalidates it and retries once with a
// fresh login; the retry counter is explicit so recovery can never recurse.
func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		session, err := c.sessions.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("remote: failed to create request: %w", err)
		}
		session.Apply(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: %s", lineage.ErrTimeout, requestURL)
			}
			return nil, fmt.Errorf("%w: %v", lineage.ErrRemote, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			// The deadline can also trip mid-body, after headers arrived.
			if errors.Is(readErr, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: %s", lineage.ErrTimeout, requestURL)
			}
			return nil, fmt.Errorf("%w: failed to read response: %v", lineage.ErrRemote, readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			c.sessions.Invalidate()
			if attempt == 0 {
				c.logger.Debug("remote session rejected, re-authenticating",
					zap.String("url", requestURL))
				continue
			}
			return nil, fmt.Errorf("%w: session rejected again after re-login", lineage.ErrRemote)
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", lineage.ErrNotFound, requestURL)
		}

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", lineage.ErrRemote, resp.StatusCode, truncate(body, 512))
		}

		return body, nil
	}
}

// encodeQuery renders query options in the store's grammar.
func encodeQuery(q lineage.Query) string {
	values := url.Values{}
	if len(q.Select) > 0 {
		values.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		values.Set("$orderby", q.OrderBy)
	}
	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		values.Set("$skip", strconv.Itoa(q.Skip))
	}
	return values.Encode()
}

func truncate(body []byte, limit int) string {
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Ensure Client implements the domain gateway.
var _ lineage.DocumentGateway = (*Client)(nil)
