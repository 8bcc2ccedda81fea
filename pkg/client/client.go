// Package client is a typed HTTP client for the requisition API, used by the
// CLI and by other services that raise or track requisitions.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/medsupply/medsupply/internal/domain/requisition"
	"github.com/medsupply/medsupply/pkg/pagination"
)

const defaultTimeout = 15 * time.Second

// TransportError means the request did not produce a usable answer: the
// connection failed, timed out, or the server answered 5xx. The action may or
// may not have been applied.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server error: status=%d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// APIError is a 4xx response: the server understood the request and refused
// it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d, message=%s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 version conflict.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

type errorBody struct {
	Message string `json:"message"`
}

// Client talks to /api/v1 of a running server.
type Client struct {
	http *resty.Client
}

// New builds a client rooted at baseURL. An empty token sends no
// Authorization header, which only works against a dev server.
func New(baseURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout)
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

// ListOptions filters GET /requisitions.
type ListOptions struct {
	Facility string
	Status   requisition.Status
	Priority requisition.Priority
	Kind     requisition.Kind
	Item     string
	Limit    int
	Offset   int
}

func (o ListOptions) query() map[string]string {
	q := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			q[k] = v
		}
	}
	set("facility", o.Facility)
	set("status", string(o.Status))
	set("priority", string(o.Priority))
	set("kind", string(o.Kind))
	set("item", o.Item)
	if o.Limit > 0 {
		q["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Offset > 0 {
		q["offset"] = strconv.Itoa(o.Offset)
	}
	return q
}

// Page is one page of GET /requisitions.
type Page struct {
	Data    []*requisition.Requisition `json:"data"`
	Total   int                        `json:"total"`
	Limit   int                        `json:"limit"`
	Offset  int                        `json:"offset"`
	HasMore bool                       `json:"has_more"`
}

func (c *Client) do(req *resty.Request, method, path string) error {
	apiErr := new(errorBody)
	op := method + " " + path
	resp, err := req.SetError(apiErr).Execute(method, path)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	msg := apiErr.Message
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: errors.New(msg)}
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

func (c *Client) ListRequisitions(ctx context.Context, opts ListOptions) (*Page, error) {
	page := new(Page)
	req := c.http.R().SetContext(ctx).SetQueryParams(opts.query()).SetResult(page)
	if err := c.do(req, http.MethodGet, "/requisitions"); err != nil {
		return nil, err
	}
	return page, nil
}

// AllRequisitions follows pages until the server reports no more results.
func (c *Client) AllRequisitions(ctx context.Context, opts ListOptions) ([]*requisition.Requisition, error) {
	if opts.Limit <= 0 {
		opts.Limit = pagination.MaxLimit
	}
	var out []*requisition.Requisition
	for {
		page, err := c.ListRequisitions(ctx, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		p := pagination.Params{Limit: page.Limit, Offset: page.Offset}
		if len(page.Data) == 0 || !p.HasNext(page.Total) {
			return out, nil
		}
		opts.Offset = p.NextOffset()
	}
}

func (c *Client) GetRequisition(ctx context.Context, id string) (*requisition.Requisition, error) {
	out := new(requisition.Requisition)
	req := c.http.R().SetContext(ctx).SetPathParam("id", id).SetResult(out)
	if err := c.do(req, http.MethodGet, "/requisitions/{id}"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRequisition(ctx context.Context, in requisition.NewRequest) (*requisition.Requisition, error) {
	out := new(requisition.Requisition)
	req := c.http.R().SetContext(ctx).SetBody(in).SetResult(out)
	if err := c.do(req, http.MethodPost, "/requisitions"); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply sends one lifecycle action. Set Version to guard against concurrent
// edits; the server answers 409 when it no longer matches.
func (c *Client) Apply(ctx context.Context, id string, action requisition.ActionRequest) (*requisition.Requisition, error) {
	out := new(requisition.Requisition)
	req := c.http.R().SetContext(ctx).SetPathParam("id", id).SetBody(action).SetResult(out)
	if err := c.do(req, http.MethodPatch, "/requisitions/{id}"); err != nil {
		return nil, err
	}
	return out, nil
}

// Suggestions returns restock suggestions. facility is honoured only for
// callers allowed to look across facilities.
func (c *Client) Suggestions(ctx context.Context, facility string) ([]requisition.Suggestion, error) {
	var out []requisition.Suggestion
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if facility != "" {
		req.SetQueryParam("facility", facility)
	}
	if err := c.do(req, http.MethodGet, "/requisitions/suggestions"); err != nil {
		return nil, err
	}
	return out, nil
}
