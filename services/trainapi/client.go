// Package trainapi is the authenticated gateway to the remote training
// platform API: one client configuration that attaches bearer credentials to
// every outgoing request and centrally interprets response status codes into
// user-facing outcomes.
package trainapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

// ErrUnauthenticated signals a 401 from the remote API. It is session-fatal:
// by the time a caller sees it, the session teardown hook has already run.
// Screen code is not expected to handle it; the HTTP error handler turns it
// into a login redirect.
var ErrUnauthenticated = errors.New("request rejected: not authenticated")

// generic notification texts; the structured payload (if any) stays on the
// returned APIError for callers needing field-level detail.
const (
	msgForbidden   = "You do not have permission to perform this action."
	msgNotFound    = "The requested resource was not found."
	msgValidation  = "Please check the submitted data."
	msgServerError = "Something went wrong on our end. Please try again later."
)

type (
	// UnauthenticatedHook is invoked exactly once per request that the remote
	// API rejects with 401, before the error is propagated.
	UnauthenticatedHook func(ctx context.Context)

	Client struct {
		baseURL  string
		http     *http.Client
		notifier core.Notifier
		logger   core.Logger

		hookMutex sync.RWMutex
		onUnauth  UnauthenticatedHook
	}

	// APIError is any non-2xx response from the remote API.
	APIError struct {
		StatusCode int
		Message    string
		Fields     map[string]string
	}

	// wire shape of remote API error payloads
	apiErrorBody struct {
		Message string              `json:"message"`
		Error   string              `json:"error"`
		Errors  map[string][]string `json:"errors"`
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API error (%d): %s", e.StatusCode, e.Message)
}

// PublicMessage is the message safe to render to the user.
func (e *APIError) PublicMessage() string { return e.Message }

func NewClient(conf *core.Config, notifier core.Notifier, logger core.Logger) *Client {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(logger, "logger"),
		vala.StringNotEmpty(conf.API.BaseURL, "conf.API.BaseURL"),
	).CheckAndPanic()

	return &Client{
		baseURL:  strings.TrimRight(conf.API.BaseURL, "/"),
		http:     &http.Client{Timeout: conf.API.Timeout},
		notifier: notifier,
		logger:   logger,
	}
}

// OnUnauthenticated registers the session teardown hook.
func (c *Client) OnUnauthenticated(hook UnauthenticatedHook) {
	c.hookMutex.Lock()
	c.onUnauth = hook
	c.hookMutex.Unlock()
}

// do dispatches one JSON request and decodes a 2xx response into out (if any).
// The bearer credential is read from the request context's session store; its
// absence is not an error at this layer, the server decides.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshaling request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.requestURL(path, query), reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachCredential(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		// network failure: propagated without a notification; the caller renders it
		return errors.Wrap(err, "dispatching request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response body")
		}
		return nil
	}
	return c.interpretFailure(ctx, resp)
}

// upload dispatches one multipart file upload.
func (c *Client) upload(ctx context.Context, path, field, filename string, r io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return errors.Wrap(err, "creating multipart field")
	}
	if _, err = io.Copy(part, r); err != nil {
		return errors.Wrap(err, "copying file content")
	}
	if err = mw.Close(); err != nil {
		return errors.Wrap(err, "finalizing multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(path, nil), &buf)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.attachCredential(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "dispatching request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response body")
		}
		return nil
	}
	return c.interpretFailure(ctx, resp)
}

func (c *Client) requestURL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) attachCredential(ctx context.Context, req *http.Request) {
	if st, ok := session.StoreFromContext(ctx); ok {
		if cred := st.Current().Credential(); cred != "" {
			req.Header.Set("Authorization", "Bearer "+cred)
		}
	}
}

// interpretFailure implements the central failure policy: 401 tears the
// session down; every other failure is reported once here (notification) and
// then propagated unchanged so the calling screen can also render an inline,
// retryable error state.
func (c *Client) interpretFailure(ctx context.Context, resp *http.Response) error {
	var body apiErrorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    serverMessage(body, resp.StatusCode),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.teardown(ctx)
		return ErrUnauthenticated

	case resp.StatusCode == http.StatusForbidden:
		apiErr.Message = msgForbidden
		c.notifier.Notify(ctx, core.Notification{Level: core.NotifyError, Message: msgForbidden})

	case resp.StatusCode == http.StatusNotFound:
		apiErr.Message = msgNotFound
		c.notifier.Notify(ctx, core.Notification{Level: core.NotifyWarning, Message: msgNotFound})

	case resp.StatusCode == http.StatusUnprocessableEntity:
		apiErr.Fields = flattenFieldErrors(body.Errors)
		c.notifier.Notify(ctx, core.Notification{Level: core.NotifyError, Message: msgValidation})

	case resp.StatusCode >= http.StatusInternalServerError:
		apiErr.Message = msgServerError
		c.notifier.Notify(ctx, core.Notification{Level: core.NotifyError, Message: msgServerError})
	}
	return apiErr
}

func (c *Client) teardown(ctx context.Context) {
	c.hookMutex.RLock()
	hook := c.onUnauth
	c.hookMutex.RUnlock()
	if hook != nil {
		hook(ctx)
	}
}

func serverMessage(body apiErrorBody, statusCode int) string {
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return http.StatusText(statusCode)
}

func flattenFieldErrors(fields map[string][]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	flat := make(map[string]string, len(fields))
	for field, msgs := range fields {
		if len(msgs) > 0 {
			flat[field] = msgs[0]
		}
	}
	return flat
}
