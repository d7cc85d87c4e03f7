package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const maxBodyBytes = 4 << 20

// Client talks to the messaging backend. It holds no per-user state.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger routes request logging to logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.WithPrefix("backend")
		}
	}
}

// New creates a client for the API rooted at baseURL (e.g. https://host/api/v1)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string { return c.baseURL }

// User is the public profile of a registered address
type User struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	ProfilePicture string `json:"profile_picture"`
	Address        string `json:"user_address"`
	StatusExpiry   int64  `json:"status_expiry"`
}

// Health is the backend's self-reported status
type Health struct {
	Status              string `json:"status"`
	Web3Connected       bool   `json:"web3_connected"`
	ContractInitialized bool   `json:"contract_initialized"`
	Network             string `json:"network"`
	ContractAddress     string `json:"contract_address"`
}

// Healthy reports whether the backend can reach its chain and contract
func (h Health) Healthy() bool {
	return h.Status == "healthy" && h.Web3Connected && h.ContractInitialized
}

type existsResponse struct {
	Address string `json:"address"`
	Exists  bool   `json:"exists"`
}

type registerRequest struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	PrivateKey string `json:"private_key"`
}

type sendRequest struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Content     string `json:"content"`
	IsMedia     bool   `json:"is_media"`
	PrivateKey  string `json:"private_key"`
}

type chatRequest struct {
	User1Address string `json:"user1_address"`
	User2Address string `json:"user2_address"`
}

type chatResponse struct {
	ChatID       string    `json:"chat_id"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// CheckRegistered reports whether address is a registered user.
// Any failure, including a malformed address, reads as not registered.
func (c *Client) CheckRegistered(ctx context.Context, address string) bool {
	addr, err := CanonicalAddress(address)
	if err != nil {
		c.logger.Debug("registration check skipped", "address", address, "err", err)
		return false
	}

	var out existsResponse
	status, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(addr)+"/exists", nil, &out)
	if err != nil || !isSuccess(status) {
		c.logger.Warn("registration check failed", "address", addr, "status", status, "err", err)
		return false
	}
	return out.Exists
}

// Register records address under name. The credential signs the chain transaction
// server-side. A non-2xx response yields ErrRegistrationRejected with the server detail.
func (c *Client) Register(ctx context.Context, address, name, credential string) error {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return err
	}

	body := registerRequest{Address: addr, Name: name, PrivateKey: credential}
	if err := c.mutate(ctx, "register", "/users/register", body, ErrRegistrationRejected); err != nil {
		return err
	}
	c.logger.Info("registered", "address", addr, "name", name)
	return nil
}

// Send posts a text message from one registered user to another.
// Callers are expected to have checked the recipient with CheckRegistered.
func (c *Client) Send(ctx context.Context, from, to, content, credential string) error {
	fromAddr, err := CanonicalAddress(from)
	if err != nil {
		return err
	}
	toAddr, err := CanonicalAddress(to)
	if err != nil {
		return err
	}

	body := sendRequest{
		FromAddress: fromAddr,
		ToAddress:   toAddr,
		Content:     content,
		IsMedia:     false,
		PrivateKey:  credential,
	}
	if err := c.mutate(ctx, "send", "/messages/send", body, ErrSendRejected); err != nil {
		return err
	}
	c.logger.Info("message sent", "from", fromAddr, "to", toAddr, "len", len(content))
	return nil
}

// FetchConversation returns every message exchanged between a and b.
//
// The backend keys conversations by the ordered pair, so a single lookup
// only returns one direction. Both orders are fetched, one after the other,
// and merged by message identity. A failed status on one direction is
// tolerated when the other succeeds.
func (c *Client) FetchConversation(ctx context.Context, a, b string) ([]Message, error) {
	addrA, err := CanonicalAddress(a)
	if err != nil {
		return nil, err
	}
	addrB, err := CanonicalAddress(b)
	if err != nil {
		return nil, err
	}

	forward, okForward, err := c.fetchPair(ctx, addrA, addrB)
	if err != nil {
		return nil, err
	}
	backward, okBackward, err := c.fetchPair(ctx, addrB, addrA)
	if err != nil {
		return nil, err
	}
	if !okForward && !okBackward {
		return nil, fmt.Errorf("%w: both directions rejected", ErrFetchFailed)
	}

	merged := Merge(forward, backward)
	c.logger.Debug("conversation merged",
		"a", addrA, "b", addrB,
		"forward", len(forward), "backward", len(backward), "unique", len(merged))
	return merged, nil
}

func (c *Client) fetchPair(ctx context.Context, user1, user2 string) ([]Message, bool, error) {
	var out chatResponse
	status, err := c.do(ctx, http.MethodPost, "/messages/chat", chatRequest{User1Address: user1, User2Address: user2}, &out)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !isSuccess(status) {
		c.logger.Warn("conversation lookup rejected", "user1", user1, "user2", user2, "status", status)
		return nil, false, nil
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, m.Normalize(user1, user2))
	}
	return msgs, true, nil
}

// User fetches the public profile of address
func (c *Client) User(ctx context.Context, address string) (User, error) {
	addr, err := CanonicalAddress(address)
	if err != nil {
		return User{}, err
	}

	var out User
	status, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(addr), nil, &out)
	if err != nil {
		return User{}, err
	}
	if status == http.StatusNotFound {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, addr)
	}
	if !isSuccess(status) {
		return User{}, fmt.Errorf("user lookup: status %d", status)
	}
	return out, nil
}

// Health queries GET /health
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	status, err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	if err != nil {
		return Health{}, err
	}
	if !isSuccess(status) {
		return Health{}, fmt.Errorf("health: status %d", status)
	}
	return out, nil
}

// do issues one JSON request and decodes a 2xx body into out.
// A non-2xx status is returned without an error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	resp, err := c.roundTrip(ctx, method, path, in)
	if err != nil {
		return 0, err
	}
	if !isSuccess(resp.status) {
		return resp.status, nil
	}
	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return resp.status, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.status, nil
}

type response struct {
	status int
	body   []byte
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) (response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return response{}, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "took", time.Since(start).Round(time.Millisecond))

	return response{status: resp.StatusCode, body: data}, nil
}

// mutate posts in and turns a non-2xx answer into a RejectedError of kind
func (c *Client) mutate(ctx context.Context, op, path string, in any, kind error) error {
	resp, err := c.roundTrip(ctx, http.MethodPost, path, in)
	if err != nil {
		return &RejectedError{Op: op, kind: kind, cause: err}
	}
	if isSuccess(resp.status) {
		return nil
	}
	rej := &RejectedError{Op: op, Status: resp.status, Detail: detail(resp.body), kind: kind}
	c.logger.Warn("request rejected", "op", op, "status", resp.status, "detail", rej.Detail)
	return rej
}

// detail extracts FastAPI's "detail" field, which is a string for handled
// errors and a list of objects for validation failures.
func detail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || len(er.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(er.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(er.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			msgs = append(msgs, it.Msg)
		}
		return strings.Join(msgs, "; ")
	}
	return string(er.Detail)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
