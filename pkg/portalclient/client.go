// Package portalclient is a Go client for the insurance portal API. It also
// models the form editor's save behaviour, see EditorSession.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/utils/document"
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api: %d %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is a stale version rejection
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsNotFound reports whether err is a 404
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// ListOptions narrow a form listing
type ListOptions struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// Client talks to one portal instance with one session token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// SetToken sets the bearer token used for every request
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	var result services.LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListForms(ctx context.Context, opts ListOptions) ([]models.Form, error) {
	values := url.Values{}
	if opts.Status != "" {
		values.Set("status", opts.Status)
	}
	if opts.Search != "" {
		values.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		values.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		values.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/forms"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var forms []models.Form
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

func (c *Client) GetForm(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	var form models.Form
	if err := c.doJSON(ctx, http.MethodGet, "/api/forms/"+id.String(), nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *Client) CreateForm(ctx context.Context, in services.CreateFormInput) (*models.Form, error) {
	var form models.Form
	if err := c.doJSON(ctx, http.MethodPost, "/api/forms", in, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *Client) UpdateForm(ctx context.Context, id uuid.UUID, in services.UpdateFormInput) (*models.Form, error) {
	var form models.Form
	if err := c.doJSON(ctx, http.MethodPut, "/api/forms/"+id.String(), in, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *Client) DeleteForm(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/forms/"+id.String(), nil, nil)
}

// Upload sends one file and returns the reference to embed into a document.
func (c *Client) Upload(ctx context.Context, fileName string, content io.Reader) (*document.UploadResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result document.UploadResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadSummary fetches the PDF summary and the file name the server suggests.
func (c *Client) DownloadSummary(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/forms/"+id.String()+"/pdf", nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", decodeError(resp)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	fileName := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		fileName = params["filename"]
	}
	return content, fileName, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			message = body.Error
		} else if body.Message != "" {
			message = body.Message
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
