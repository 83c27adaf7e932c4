package editapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/scottjudy/deepcell-label/errors"
)

// Client talks to the labeling service over HTTP. The service owns the
// authoritative label arrays; every call returns the updated label payload
// (or an error object) which the caller merges into local state.
//
// Routes, matching the service's blueprint:
//
//	POST /edit/{projectId}/{action}   form-encoded args
//	POST /undo/{projectId}
//	POST /redo/{projectId}
//	POST /upload/{bucket}/{projectId}
type Client struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
}

// NewClient creates a client for one project. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL, projectID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		httpClient: httpClient,
	}
}

// errorBody is the service's error object shape
type errorBody struct {
	Error string `json:"error"`
}

// Edit posts an action with form-encoded args and returns the label payload
func (c *Client) Edit(ctx context.Context, action string, args map[string]string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/edit/%s/%s", c.baseURL, c.projectID, action)
	form := url.Values{}
	for k, v := range args {
		form.Set(k, v)
	}
	return c.post(ctx, "Edit", endpoint, form)
}

// Undo asks the service to rewind its own action history
func (c *Client) Undo(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, "Undo", fmt.Sprintf("%s/undo/%s", c.baseURL, c.projectID), nil)
}

// Redo asks the service to replay its own action history
func (c *Client) Redo(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, "Redo", fmt.Sprintf("%s/redo/%s", c.baseURL, c.projectID), nil)
}

// Upload exports the project to the given bucket. Success or failure only;
// the response body carries nothing the core consumes.
func (c *Client) Upload(ctx context.Context, bucket string) error {
	_, err := c.post(ctx, "Upload", fmt.Sprintf("%s/upload/%s/%s", c.baseURL, bucket, c.projectID), nil)
	return err
}

func (c *Client) post(ctx context.Context, operation, endpoint string, form url.Values) (json.RawMessage, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", operation, "build request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", operation, "http request")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", operation, "read response")
	}

	// The service reports failures both as non-2xx statuses and as an
	// error object in an otherwise valid body; surface the message either
	// way so the user sees what the service said.
	var errBody errorBody
	if unmarshalErr := json.Unmarshal(payload, &errBody); unmarshalErr == nil && errBody.Error != "" {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrEditRejected, errBody.Error),
			"Client", operation, "service error")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: status %d", errors.ErrServiceUnhealthy, resp.StatusCode),
			"Client", operation, "status check")
	}

	return payload, nil
}
