// Package client provides a Go HTTP client for programmatic access to the
// pdfx API.
//
// The client mirrors the server's endpoint structure with strongly-typed
// methods: document management, PDF upload and retrieval, the annotation
// save/load/clear protocol, and administrative operations. It uses the same
// [github.com/abconlinecourses/pdfx-xblock/pkg/models] and
// [github.com/abconlinecourses/pdfx-xblock/pkg/annotations] types as the
// server, so payloads that type-check are payloads the server accepts.
//
// # Authentication
//
// Authentication is token-based. SignUp and SignIn store the returned token
// on the client, and every subsequent request carries it in the
// Authorization header:
//
//	c := client.NewClient("http://localhost:8080")
//	if _, err := c.SignIn(ctx, "student@example.com", "password"); err != nil {
//		return err
//	}
//	bundle, err := c.LoadAnnotations(ctx, docID, false)
//
// # Error Handling
//
// HTTP error responses carry the server's error envelope; client methods
// return the status code and body in the error message. Network and
// serialization failures are wrapped with context.
//
// The virtual-student harness in
// [github.com/abconlinecourses/pdfx-xblock/pkg/pdfxtesting] drives this
// client from concurrent goroutines; Client is safe for concurrent use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// Client provides strongly-typed access to the pdfx REST API.
//
// Client instances are safe for concurrent use by multiple goroutines,
// though the auth token is shared: concurrent SignIn calls race on it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates a new pdfx API client.
//
// The baseURL should include the protocol and host (e.g.
// "http://localhost:8080") without a trailing slash or API path prefix.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the authentication token for the client.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// doRequest performs a JSON HTTP request with proper headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into the target struct.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Health checks the health status of the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Document management

// DocumentUpdate is the partial-update payload for a document. Nil fields
// leave the stored value unchanged; a blank SourceURL is ignored by the
// server and never clears configured content.
type DocumentUpdate struct {
	DisplayName     *string `json:"display_name,omitempty"`
	SourceURL       *string `json:"source_url,omitempty"`
	AllowDownload   *bool   `json:"allow_download,omitempty"`
	AllowAnnotation *bool   `json:"allow_annotation,omitempty"`
}

// CreateDocument registers a new document. Requires staff.
func (c *Client) CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/documents", doc)
	if err != nil {
		return nil, err
	}

	var result models.Document
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetDocument retrieves a document by ID.
func (c *Client) GetDocument(ctx context.Context, id models.DocumentID) (*models.Document, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.Document
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateDocument applies a partial update to a document. Requires staff.
func (c *Client) UpdateDocument(ctx context.Context, id models.DocumentID, update *DocumentUpdate) (*models.Document, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/documents/%s", id), update)
	if err != nil {
		return nil, err
	}

	var result models.Document
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteDocument deletes a document. Requires staff.
func (c *Client) DeleteDocument(ctx context.Context, id models.DocumentID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/documents/%s", id), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// ListDocuments lists all documents in a course.
func (c *Client) ListDocuments(ctx context.Context, courseID models.CourseID) ([]*models.Document, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%s/documents", courseID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Document
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Document content

// UploadFile uploads PDF bytes as the document's content. Requires staff.
func (c *Client) UploadFile(ctx context.Context, id models.DocumentID, filename string, data []byte) (*models.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/documents/%s/file", c.baseURL, id), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	var result models.Document
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Source is the viewer bootstrap payload for a document.
type Source struct {
	URL             string `json:"url"`
	DisplayName     string `json:"display_name"`
	PageCount       int    `json:"page_count,omitempty"`
	AllowDownload   bool   `json:"allow_download"`
	AllowAnnotation bool   `json:"allow_annotation"`
}

// GetSource retrieves the viewer bootstrap payload: the URL to fetch the
// PDF from plus the document's permission switches.
func (c *Client) GetSource(ctx context.Context, id models.DocumentID) (*Source, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%s/source", id), nil)
	if err != nil {
		return nil, err
	}

	var result Source
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DownloadFile fetches the document as an attachment, following the
// redirect for URL-sourced documents.
func (c *Client) DownloadFile(ctx context.Context, id models.DocumentID) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%s/download", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// SetThumbnail stores the document's preview image as a base64 image data
// URI. Requires staff.
func (c *Client) SetThumbnail(ctx context.Context, id models.DocumentID, dataURI string) error {
	payload := map[string]string{"thumbnail": dataURI}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/documents/%s/thumbnail", id), payload)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// GetThumbnail retrieves the document's preview image data URI.
func (c *Client) GetThumbnail(ctx context.Context, id models.DocumentID) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%s/thumbnail", id), nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Thumbnail string `json:"thumbnail"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return "", err
	}

	return result.Thumbnail, nil
}

// Annotations

// SaveAnnotations submits an annotation payload for the signed-in user.
func (c *Client) SaveAnnotations(ctx context.Context, id models.DocumentID, req *annotations.SaveRequest) (*annotations.SaveResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/documents/%s/annotations", id), req)
	if err != nil {
		return nil, err
	}

	var result annotations.SaveResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// LoadAnnotations retrieves the signed-in user's view of a document's
// annotations. Setting aggregate requests the all-users view, which the
// server only grants to staff.
func (c *Client) LoadAnnotations(ctx context.Context, id models.DocumentID, aggregate bool) (*annotations.Bundle, error) {
	path := fmt.Sprintf("/api/documents/%s/annotations", id)
	if aggregate {
		path += "?aggregate=1"
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result annotations.Bundle
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ClearPage removes the signed-in user's own annotations from one page and
// returns the count removed.
func (c *Client) ClearPage(ctx context.Context, id models.DocumentID, page int) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/api/documents/%s/annotations/pages/%d", id, page), nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Removed int `json:"removed"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return 0, err
	}

	return result.Removed, nil
}

// ClearAll removes every annotation the signed-in user owns on a document
// and returns the count removed.
func (c *Client) ClearAll(ctx context.Context, id models.DocumentID) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/documents/%s/annotations", id), nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Removed int `json:"removed"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return 0, err
	}

	return result.Removed, nil
}

// Administration

// SetReadOnly toggles server maintenance mode. Requires staff.
func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) error {
	payload := map[string]bool{"read_only": readOnly}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/admin/readonly", payload)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// GetReadOnly reports whether the server is in maintenance mode. Requires
// staff.
func (c *Client) GetReadOnly(ctx context.Context) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/admin/readonly", nil)
	if err != nil {
		return false, err
	}

	var result struct {
		ReadOnly bool `json:"read_only"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return false, err
	}

	return result.ReadOnly, nil
}
