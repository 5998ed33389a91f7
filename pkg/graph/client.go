package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Package graph maps Graph API operations onto HTTP calls and decodes the responses.

// DefaultBaseURL is the Graph API root every path is appended to.
const DefaultBaseURL = "https://graph.facebook.com/"

const (
	fieldsParam = "fields"
	dataKey     = "data"
	idKey       = "id"
)

// Client is a stateless Graph API facade. It is safe for concurrent use when its
// Transport and Codec are.
type Client struct {
	transport Transport
	codec     Codec
	baseURL   string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another Graph API host (test servers, API versions).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base == "" {
			return
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
	}
}

// NewClient builds a Client on the given transport. A nil codec falls back to JSONCodec.
func NewClient(transport Transport, codec Codec, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("graph: transport must not be nil")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	c := &Client{
		transport: transport,
		codec:     codec,
		baseURL:   DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the prefix prepended to every object path.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchObject issues GET {base}{objectID} and decodes the body into out.
func (c *Client) FetchObject(ctx context.Context, objectID string, out any) error {
	return c.FetchObjectWithParams(ctx, objectID, out, nil)
}

// FetchObjectWithParams is FetchObject with query parameters appended to the URI.
func (c *Client) FetchObjectWithParams(ctx context.Context, objectID string, out any, params map[string]string) error {
	body, err := c.transport.Get(ctx, buildURI(c.baseURL+objectID, params))
	if err != nil {
		return err
	}
	return c.decode(body, out)
}

// FetchConnections lists a connection of objectID into out, which must point to a slice.
// Non-empty fields are sent comma-joined as the "fields" parameter.
func (c *Client) FetchConnections(ctx context.Context, objectID, connection string, out any, fields ...string) error {
	return c.FetchConnectionsWithParams(ctx, objectID, connection, out, fieldsParams(fields))
}

// FetchConnectionsWithParams issues GET {base}{objectID}[/{connection}] and decodes the
// "data" array of the response envelope into out.
func (c *Client) FetchConnectionsWithParams(ctx context.Context, objectID, connection string, out any, params map[string]string) error {
	body, err := c.transport.Get(ctx, buildURI(c.baseURL+objectID+connectionPath(connection), params))
	if err != nil {
		return err
	}

	var envelope map[string]json.RawMessage
	if err := c.decode(body, &envelope); err != nil {
		return err
	}
	data, ok := envelope[dataKey]
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return newDecodeError(fmt.Errorf("response has no %q field", dataKey))
	}
	return c.decode(data, out)
}

// FetchImage is not implemented; it always returns ErrUnsupported.
func (c *Client) FetchImage(ctx context.Context, objectID, connection string, imageType ImageType) ([]byte, error) {
	return nil, ErrUnsupported
}

// Publish POSTs data to {base}{objectID}/{connection} and returns the id of the created object.
func (c *Client) Publish(ctx context.Context, objectID, connection string, data map[string]any) (string, error) {
	body, err := c.transport.Post(ctx, c.baseURL+objectID+"/"+connection, data)
	if err != nil {
		return "", err
	}

	var resp map[string]any
	if err := c.decode(body, &resp); err != nil {
		return "", err
	}
	raw, ok := resp[idKey]
	if !ok {
		return "", newDecodeError(fmt.Errorf("response has no %q field", idKey))
	}
	id, ok := raw.(string)
	if !ok {
		return "", newDecodeError(fmt.Errorf("%q field is %T, want string", idKey, raw))
	}
	return id, nil
}

// Post POSTs data to {base}{objectID}/{connection}; the response body is discarded.
func (c *Client) Post(ctx context.Context, objectID, connection string, data map[string]string) error {
	_, err := c.transport.Post(ctx, c.baseURL+objectID+"/"+connection, data)
	return err
}

// Delete removes objectID using the Graph API's delete-via-POST convention.
func (c *Client) Delete(ctx context.Context, objectID string) error {
	_, err := c.transport.Post(ctx, c.baseURL+objectID, deleteRequest())
	return err
}

// DeleteConnection removes the connection of objectID.
func (c *Client) DeleteConnection(ctx context.Context, objectID, connection string) error {
	_, err := c.transport.Post(ctx, c.baseURL+objectID+"/"+connection, deleteRequest())
	return err
}

func (c *Client) decode(data []byte, out any) error {
	if err := c.codec.Decode(data, out); err != nil {
		return newDecodeError(err)
	}
	return nil
}

func deleteRequest() map[string]string {
	return map[string]string{"method": "delete"}
}

func connectionPath(connection string) string {
	if connection == "" {
		return ""
	}
	return "/" + connection
}

func fieldsParams(fields []string) map[string]string {
	params := make(map[string]string, 1)
	if len(fields) > 0 {
		params[fieldsParam] = strings.Join(fields, ",")
	}
	return params
}

// buildURI appends params as an encoded query string; empty params leave uri untouched.
func buildURI(uri string, params map[string]string) string {
	if len(params) == 0 {
		return uri
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return uri + "?" + values.Encode()
}
