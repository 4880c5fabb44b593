// Package api is the HTTP client of the fee portal API. Every call carries a timeout and
// every failure is mapped onto the core error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/core/user"
)

const maxErrorBody = 64 << 10

// ErrNoToken is returned, without any network call, by authenticated calls made with an empty token.
var ErrNoToken = core.NewAuthError("not authenticated")

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New returns a client of the API served at baseURL. A zero timeout disables the per-call deadline.
func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
	}
}

func NewFromConfig(conf *core.Config) *Client {
	return New(conf.Client.BaseURL, conf.Client.RequestTimeout, nil)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) Signup(ctx context.Context, nu user.NewUser) (user.AuthResult, error) {
	var res user.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", nu, &res)
	return res, err
}

func (c *Client) Login(ctx context.Context, email, password string) (user.AuthResult, error) {
	var res user.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", user.LoginRequest{Email: email, Password: password}, &res)
	return res, err
}

// Logout revokes token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (c *Client) ListStudents(ctx context.Context, token string) ([]student.Student, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	var students []student.Student
	if err := c.do(ctx, http.MethodGet, "/api/students", token, nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (c *Client) GetOwnStudent(ctx context.Context, token string) (student.Student, error) {
	var st student.Student
	if token == "" {
		return st, ErrNoToken
	}
	err := c.do(ctx, http.MethodGet, "/api/students/me", token, nil, &st)
	return st, err
}

func (c *Client) UpdateOwnStudent(ctx context.Context, token string, patch student.UpdateStudent) (student.Student, error) {
	var st student.Student
	if token == "" {
		return st, ErrNoToken
	}
	err := c.do(ctx, http.MethodPut, "/api/students/me", token, patch, &st)
	return st, err
}

func (c *Client) PayOwnStudent(ctx context.Context, token string) (student.Student, error) {
	var st student.Student
	if token == "" {
		return st, ErrNoToken
	}
	err := c.do(ctx, http.MethodPost, "/api/students/me/pay", token, struct{}{}, &st)
	return st, err
}

// ExportRoster downloads the roster spreadsheet (.xlsx).
func (c *Client) ExportRoster(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, "/api/students/export", token, nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Health reports the server status. A degraded server returns its status along with a TransportError.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", "", nil, &hs)
	if err == nil {
		return hs, nil
	}
	var tErr *core.TransportError
	if errors.As(err, &tErr) {
		var sErr *statusError
		if errors.As(tErr.Err, &sErr) {
			_ = json.Unmarshal(sErr.body, &hs)
		}
	}
	return hs, err
}

// do sends the request and decodes a successful response into out:
// a *bytes.Buffer receives the raw body, anything else is decoded as JSON.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	op := method + " " + path
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s request", op)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "building %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusToError(op, resp.StatusCode, data)
	}

	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
	case *bytes.Buffer:
		if _, err = dst.ReadFrom(resp.Body); err != nil {
			return core.NewTransportError(op, err)
		}
	default:
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return core.NewTransportError(op, errors.Wrap(err, "decoding response"))
		}
	}
	return nil
}

type statusError struct {
	code int
	msg  string
	body []byte
}

func (err *statusError) Error() string {
	if err.msg == "" {
		return fmt.Sprintf("unexpected status %d", err.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", err.code, err.msg)
}

func statusToError(op string, code int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch code {
	case http.StatusBadRequest:
		fields := make([]core.FieldError, 0, len(eb.Fields))
		for fld, fErr := range eb.Fields {
			fields = append(fields, core.FieldError{Field: fld, Error: fErr})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return core.NewValidationError(errors.New(msg), fields...)
	case http.StatusUnauthorized:
		return core.NewAuthError(msg)
	case http.StatusNotFound:
		return core.NewNotFoundError(msg)
	case http.StatusConflict:
		return core.NewConflictError(msg)
	default:
		return core.NewTransportError(op, &statusError{code: code, msg: eb.Error, body: data})
	}
}
