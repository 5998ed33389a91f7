package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-graph/pkg/graph"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "samvad-graph/1.0"
	accessTokenParam = "access_token"
	maxBodySnippet   = 512
)

// Options configures a Transport.
type Options struct {
	Timeout     time.Duration
	AccessToken string
	UserAgent   string
}

// Transport is the resty-backed, token-authenticated implementation of graph.Transport.
type Transport struct {
	client *resty.Client
}

// NewTransport builds a Transport. The access token, when set, is sent as the
// access_token query parameter on every request.
func NewTransport(opts Options) *Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	c := NewRestyHTTPClient(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent)
	if token := strings.TrimSpace(opts.AccessToken); token != "" {
		c.SetQueryParam(accessTokenParam, token)
	}
	return &Transport{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Get performs a GET against uri and returns the body of a 2xx response.
func (t *Transport) Get(ctx context.Context, uri string) ([]byte, error) {
	resp, err := t.client.R().SetContext(ctx).Get(uri)
	return checkResponse(http.MethodGet, uri, resp, err)
}

// Post sends body as JSON to uri and returns the body of a 2xx response.
func (t *Transport) Post(ctx context.Context, uri string, body any) ([]byte, error) {
	req := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(uri)
	return checkResponse(http.MethodPost, uri, resp, err)
}

// graphErrorEnvelope is the body the Graph API returns alongside error statuses.
type graphErrorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func checkResponse(method, uri string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &graph.TransportError{Method: method, URI: uri, Err: err}
	}
	if resp.IsSuccess() {
		return resp.Body(), nil
	}

	terr := &graph.TransportError{
		Method:     method,
		URI:        uri,
		StatusCode: resp.StatusCode(),
		Body:       readBodySnippet(resp.Body()),
	}
	var envelope graphErrorEnvelope
	if json.Unmarshal(resp.Body(), &envelope) == nil && envelope.Error != nil {
		terr.GraphMessage = envelope.Error.Message
		terr.GraphType = envelope.Error.Type
		terr.GraphCode = envelope.Error.Code
	}
	return nil, terr
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxBodySnippet {
		body = body[:maxBodySnippet]
	}
	return strings.TrimSpace(string(body))
}
