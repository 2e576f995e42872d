package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"image-host-client/internal/models"
	apperrors "image-host-client/pkg/errors"
	"image-host-client/pkg/logger"
)

// TokenProvider returns the bearer token for authenticated requests.
// An empty token without an error means the caller is unauthenticated;
// list requests are then forced to the shared view.
type TokenProvider func(ctx context.Context) (string, error)

// HistoryService defines the interface for remote history operations
type HistoryService interface {
	// List fetches one page of history records
	List(ctx context.Context, query ListQuery) (*ListResult, error)

	// Rename changes a record's display name
	Rename(ctx context.Context, target RenameTarget, filename string) error

	// BatchDelete removes records by server id and reports how many
	// were deleted
	BatchDelete(ctx context.Context, ids []int64) (int, error)

	// ClearAll removes every record visible under the given view mode
	ClearAll(ctx context.Context, mode models.ViewMode) error

	// Validate probes a stored URL and reports its link status
	Validate(ctx context.Context, rawURL string) (models.LinkStatus, error)

	// FetchThumbnail downloads the image bytes behind a record URL
	FetchThumbnail(ctx context.Context, rawURL string) ([]byte, error)
}

// Client implements HistoryService against the image host's REST API
type Client struct {
	httpClient    *http.Client
	baseURL       string
	tokenProvider TokenProvider
	logger        *logger.Logger
}

// NewClient creates a history API client.
// baseURL is the API origin, e.g. https://img.example.com.
// tokenProvider may be nil for a permanently unauthenticated client.
func NewClient(baseURL string, timeout time.Duration, tokenProvider TokenProvider, log *logger.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, apperrors.New(apperrors.ErrConfigurationError, "server URL cannot be empty", nil)
	}
	if log == nil {
		log = logger.NewWithComponent("history_api")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL:       strings.TrimRight(baseURL, "/"),
		tokenProvider: tokenProvider,
		logger:        log,
	}, nil
}

// List fetches one page of history records. A missing bearer token
// downgrades the request to the shared view before it is built.
func (c *Client) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	mode := query.ViewMode
	if !mode.Valid() {
		mode = models.ViewPrivate
	}
	if token == "" {
		mode = models.ViewShared
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("page_size", strconv.Itoa(query.PageSize))
	params.Set("view_mode", string(mode))
	if query.Keyword != "" {
		params.Set("keyword", query.Keyword)
	}
	if mode == models.ViewShared && query.OnlyMine {
		params.Set("only_mine", "true")
	}

	var decoded listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/history?"+params.Encode(), token, nil, &decoded); err != nil {
		return nil, err
	}
	if !decoded.Success {
		return nil, apperrors.NewBusinessError(decoded.Error)
	}

	result := &ListResult{
		Total:         decoded.Total,
		EffectiveMode: mode,
	}
	for i := range decoded.Data {
		result.Records = append(result.Records, decoded.Data[i].toRecord(c.baseURL))
	}

	c.logger.InfoWithFields("history page fetched", map[string]interface{}{
		"page":      query.Page,
		"view_mode": string(mode),
		"count":     len(result.Records),
		"total":     result.Total,
	})

	return result, nil
}

// Rename changes a record's display name. The server id is preferred;
// the URL form exists for records created before ids were assigned.
func (c *Client) Rename(ctx context.Context, target RenameTarget, filename string) error {
	if filename == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "filename cannot be empty", nil)
	}
	if target.ID <= 0 && target.URL == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "rename target has neither id nor url", nil)
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body := renameRequest{Filename: filename}
	if target.ID > 0 {
		body.ID = &target.ID
	} else {
		body.URL = target.URL
	}

	var decoded basicResponse
	if err := c.doJSON(ctx, http.MethodPost, "/history/rename", token, body, &decoded); err != nil {
		return err
	}
	if !decoded.Success {
		return apperrors.NewBusinessError(decoded.Error)
	}
	return nil
}

// BatchDelete removes records by server id. Deletion is unconditional;
// confirmation is the caller's responsibility.
func (c *Client) BatchDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return 0, err
	}

	var decoded deleteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/history/delete", token, deleteRequest{IDs: ids}, &decoded); err != nil {
		return 0, err
	}
	if !decoded.Success {
		return 0, apperrors.NewBusinessError(decoded.Error)
	}
	return decoded.Count, nil
}

// ClearAll removes every record visible under the given view mode for
// the caller's scope.
func (c *Client) ClearAll(ctx context.Context, mode models.ViewMode) error {
	if !mode.Valid() {
		return apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("invalid view mode %q", mode), nil)
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("view_mode", string(mode))

	var decoded basicResponse
	if err := c.doJSON(ctx, http.MethodPost, "/history/clear?"+params.Encode(), token, nil, &decoded); err != nil {
		return err
	}
	if !decoded.Success {
		return apperrors.NewBusinessError(decoded.Error)
	}
	return nil
}

// Validate probes a stored URL. Only an explicit "invalid" verdict maps
// to LinkBad; an inconclusive probe reports LinkUnknown so that a
// transient failure never condemns a live link.
func (c *Client) Validate(ctx context.Context, rawURL string) (models.LinkStatus, error) {
	token, err := c.token(ctx)
	if err != nil {
		return models.LinkUnknown, err
	}

	var decoded validateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/validate", token, validateRequest{URL: rawURL}, &decoded); err != nil {
		return models.LinkUnknown, err
	}

	if decoded.Success {
		return models.LinkOK, nil
	}
	if decoded.Kind == "invalid" {
		return models.LinkBad, nil
	}
	return models.LinkUnknown, nil
}

// FetchThumbnail downloads the image behind a record URL. Used by the
// card renderer; a failure here feeds the self-healing watchdog.
func (c *Client) FetchThumbnail(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "bad thumbnail URL", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.FromHTTPStatus(resp.StatusCode, "")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return data, nil
}

// token resolves the current bearer token, treating a nil provider as
// unauthenticated.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokenProvider == nil {
		return "", nil
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrUnauthorized, "failed to resolve auth token")
	}
	return token, nil
}

// doJSON performs one API round trip: marshals the body, attaches the
// bearer token, checks the status, and decodes the response envelope.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.New(apperrors.ErrInternalError, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.New(apperrors.ErrInternalError, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.New(apperrors.ErrBadResponse, "failed to decode response", err)
	}
	return nil
}
