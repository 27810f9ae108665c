package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thimbleforth/ditto-fde-takehome/internal/api"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// DefaultRequestTimeout bounds one HTTP round trip to the cloud.
const DefaultRequestTimeout = 10 * time.Second

// ErrUnreachable wraps failures where no response was received.
var ErrUnreachable = errors.New("cloud unreachable")

// TokenIssuer signs bearer tokens. Implemented by *auth.Issuer.
type TokenIssuer interface {
	Issue(user string) (string, error)
}

// Client talks to the cloud Sync Transport on behalf of one edge identity.
type Client struct {
	baseURL    string
	user       string
	issuer     TokenIssuer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the cloud at baseURL.
// A non-positive timeout uses DefaultRequestTimeout.
func NewClient(baseURL, user string, issuer TokenIssuer, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		issuer:     issuer,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Submit posts one record with a freshly issued token and returns the
// sequence id the cloud assigned.
//
// Cloud rejections come back as *ir.Error with the cloud's code, so callers
// can use ir.IsAuthError and friends. Transport failures wrap ErrUnreachable.
func (c *Client) Submit(ctx context.Context, sub ir.Submission) (int64, error) {
	token, err := c.issuer.Issue(c.user)
	if err != nil {
		return 0, fmt.Errorf("issue token: %w", err)
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}

	var result api.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode sync response: %w", err)
	}
	if result.SequenceID <= 0 {
		return 0, fmt.Errorf("sync response has no sequence id (status %q)", result.Status)
	}

	c.logger.Debug("submitted record",
		"report_id", sub.ReportID,
		"sequence_id", result.SequenceID,
		"request_id", resp.Header.Get(api.RequestIDHeader),
	)
	return result.SequenceID, nil
}

// decodeError rebuilds the cloud's typed error from a failure response.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return fmt.Errorf("cloud returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &ir.Error{
		Code:    ir.ErrorCode(e.Code),
		Message: e.Error,
		Field:   e.Field,
		Err:     fmt.Errorf("cloud returned %d", resp.StatusCode),
	}
}

// Health fetches GET /api/health.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var health api.HealthResponse
	err := c.getJSON(ctx, "/api/health", &health)
	return health, err
}

// Latest fetches GET /api/reports/latest.
func (c *Client) Latest(ctx context.Context) ([]api.RecordView, error) {
	var views []api.RecordView
	err := c.getJSON(ctx, "/api/reports/latest", &views)
	return views, err
}

// Versions fetches the history of one report.
func (c *Client) Versions(ctx context.Context, reportID string) ([]api.RecordView, error) {
	var views []api.RecordView
	err := c.getJSON(ctx, "/api/reports/"+url.PathEscape(reportID)+"/versions", &views)
	return views, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
