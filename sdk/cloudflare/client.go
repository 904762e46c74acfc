package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	cf "github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/option"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	Code = "cloudflare"

	maxResponseBody = 4 << 20
)

// Client talks to the two remote resources a route spans: the tunnel
// configuration of an account and the DNS records of a zone.
type Client struct {
	httpClient *http.Client
	cf         *cf.Client
	accountID  string
	apiToken   string
	baseURL    string
	logger     logger.ILogger
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     logger.ILogger
}

type Option func(opts *Options)

func BaseURLOption(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

func TimeoutOption(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// MaxRetriesOption bounds the SDK transport retries on 429/5xx responses.
func MaxRetriesOption(n int) Option {
	return func(opts *Options) {
		opts.MaxRetries = n
	}
}

func HTTPClientOption(c *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = c
	}
}

func LoggerOption(log logger.ILogger) Option {
	return func(opts *Options) {
		opts.Logger = log
	}
}

func NewClient(accountID, apiToken string, opts ...Option) *Client {
	options := Options{
		BaseURL:    consts.DefaultAPIBaseURL,
		Timeout:    consts.DefaultRequestTimeout * time.Second,
		MaxRetries: consts.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = logger.Default()
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}
	baseURL := strings.TrimRight(options.BaseURL, "/")

	return &Client{
		httpClient: httpClient,
		cf: cf.NewClient(
			option.WithAPIToken(apiToken),
			option.WithBaseURL(baseURL+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(options.MaxRetries),
		),
		accountID: accountID,
		apiToken:  apiToken,
		baseURL:   baseURL,
		logger:    options.Logger,
	}
}

func (c *Client) String() string {
	return Code
}

type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type cfResponse[T any] struct {
	Success  bool      `json:"success"`
	Errors   []cfError `json:"errors"`
	Messages []any     `json:"messages"`
	Result   T         `json:"result"`
}

func (r *cfResponse[T]) messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// doRequest sends one JSON request and decodes the envelope into v. Failures
// come back as *APIError classified against the errdefs taxonomy.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body any, v *cfResponse[json.RawMessage]) error {
	var bodyReader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		bodyReader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	req.Header.Set(consts.HeaderAuthorization, "Bearer "+c.apiToken)
	req.Header.Set(consts.HeaderContentType, consts.ContentTypeJSON)
	req.Header.Set("Accept", consts.ContentTypeJSON)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugf("%s %s failed after %s: %v", method, path, time.Since(start), err)
		return &APIError{Op: op, Kind: errdefs.ErrAPIUnavailable, Messages: []string{err.Error()}}
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Kind: errdefs.ErrAPIUnavailable, Messages: []string{err.Error()}}
	}

	decodeErr := json.Unmarshal(data, v)
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}
		if decodeErr == nil {
			apiErr.Messages = v.messages()
		} else {
			apiErr.Messages = []string{strings.TrimSpace(string(truncate(data, 512)))}
		}
		return apiErr
	}
	if decodeErr != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Kind: errdefs.ErrAPIUnavailable,
			Messages: []string{"undecodable response: " + decodeErr.Error()}}
	}
	if !v.Success {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Kind: errdefs.ErrAPIRequest, Messages: v.messages()}
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
