package graph

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	uri    string
	body   any
}

type fakeTransport struct {
	calls []recordedCall
	resp  string
	err   error
}

func (f *fakeTransport) Get(_ context.Context, uri string) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: "GET", uri: uri})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.resp), nil
}

func (f *fakeTransport) Post(_ context.Context, uri string, body any) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: "POST", uri: uri, body: body})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.resp), nil
}

func (f *fakeTransport) last(t *testing.T) recordedCall {
	t.Helper()
	require.NotEmpty(t, f.calls, "transport was not called")
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, resp string) (*Client, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{resp: resp}
	c, err := NewClient(tr, nil)
	require.NoError(t, err)
	return c, tr
}

func TestNewClientRequiresTransport(t *testing.T) {
	_, err := NewClient(nil, nil)
	require.Error(t, err)
}

func TestWithBaseURLAddsTrailingSlash(t *testing.T) {
	c, err := NewClient(&fakeTransport{}, nil, WithBaseURL("http://127.0.0.1:8080/v19.0"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/v19.0/", c.BaseURL())
}

func TestFetchObject(t *testing.T) {
	c, tr := newTestClient(t, `{"id":"42","name":"Ada"}`)

	var ref Reference
	require.NoError(t, c.FetchObject(context.Background(), "42", &ref))

	call := tr.last(t)
	assert.Equal(t, "GET", call.method)
	assert.Equal(t, DefaultBaseURL+"42", call.uri)
	assert.Equal(t, Reference{ID: "42", Name: "Ada"}, ref)
}

func TestFetchObjectWithEmptyParamsHasNoQuery(t *testing.T) {
	c, tr := newTestClient(t, `{"id":"42"}`)

	var ref Reference
	require.NoError(t, c.FetchObjectWithParams(context.Background(), "42", &ref, map[string]string{}))
	assert.Equal(t, DefaultBaseURL+"42", tr.last(t).uri)
}

func TestFetchObjectWithParams(t *testing.T) {
	c, tr := newTestClient(t, `{"id":"42"}`)

	params := map[string]string{"fields": "id,name", "locale": "en_US", "q": "a b"}
	_, err := ObjectWithParams[Reference](context.Background(), c, "42", params)
	require.NoError(t, err)

	uri := tr.last(t).uri
	base, query, found := strings.Cut(uri, "?")
	require.True(t, found, "expected query string in %s", uri)
	assert.Equal(t, DefaultBaseURL+"42", base)

	pairs := strings.Split(query, "&")
	assert.Len(t, pairs, len(params))
	parsed, err := url.ParseQuery(query)
	require.NoError(t, err)
	for k, v := range params {
		assert.Equal(t, []string{v}, parsed[k], "param %s", k)
	}
}

func TestFetchObjectDecodeError(t *testing.T) {
	c, _ := newTestClient(t, `["not","an","object"]`)

	_, err := Object[Reference](context.Background(), c, "42")
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "error deserializing data from Facebook")
}

func TestFetchObjectPropagatesTransportError(t *testing.T) {
	want := &TransportError{Method: "GET", URI: "x", StatusCode: 500, Body: "boom"}
	tr := &fakeTransport{err: want}
	c, err := NewClient(tr, nil)
	require.NoError(t, err)

	_, err = Object[Reference](context.Background(), c, "42")
	assert.Same(t, want, err)
}

func TestFetchConnectionsTargetsPath(t *testing.T) {
	tests := []struct {
		name       string
		connection string
		want       string
	}{
		{name: "empty connection", connection: "", want: DefaultBaseURL + "me"},
		{name: "named connection", connection: "friends", want: DefaultBaseURL + "me/friends"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tr := newTestClient(t, `{"data":[]}`)
			_, err := Connections[Reference](context.Background(), c, "me", tt.connection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.last(t).uri)
		})
	}
}

func TestFetchConnectionsFieldsMatchParamOverload(t *testing.T) {
	c, tr := newTestClient(t, `{"data":[]}`)

	_, err := Connections[Reference](context.Background(), c, "me", "photos", "a", "b", "c")
	require.NoError(t, err)
	viaFields := tr.last(t).uri

	_, err = ConnectionsWithParams[Reference](context.Background(), c, "me", "photos", map[string]string{"fields": "a,b,c"})
	require.NoError(t, err)
	viaParams := tr.last(t).uri

	assert.Equal(t, viaParams, viaFields)
	assert.Equal(t, DefaultBaseURL+"me/photos?fields=a%2Cb%2Cc", viaFields)
}

func TestFetchConnectionsDecodesDataEnvelope(t *testing.T) {
	c, _ := newTestClient(t, `{"data":[{"id":"1","name":"one"},{"id":"2","name":"two"}],"paging":{"next":"x"}}`)

	refs, err := Connections[Reference](context.Background(), c, "me", "friends")
	require.NoError(t, err)
	assert.Equal(t, []Reference{{ID: "1", Name: "one"}, {ID: "2", Name: "two"}}, refs)
}

func TestFetchConnectionsIntoCallerSlice(t *testing.T) {
	c, _ := newTestClient(t, `{"data":[{"id":"1"},{"id":"2"}]}`)

	var out []map[string]any
	require.NoError(t, c.FetchConnections(context.Background(), "me", "likes", &out, "id"))
	assert.Len(t, out, 2)
}

func TestFetchConnectionsDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{name: "missing data", resp: `{"paging":{}}`},
		{name: "null data", resp: `{"data":null}`},
		{name: "data not a list", resp: `{"data":{"id":"1"}}`},
		{name: "body not an object", resp: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.resp)
			_, err := Connections[Reference](context.Background(), c, "me", "friends")
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestFetchImageUnsupported(t *testing.T) {
	c, tr := newTestClient(t, "")

	for _, typ := range []ImageType{ImageSquare, ImageLarge, ""} {
		img, err := c.FetchImage(context.Background(), "me", "picture", typ)
		assert.Nil(t, img)
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.ErrorIs(t, err, errors.ErrUnsupported)
	}
	assert.Empty(t, tr.calls)
}

func TestPublishReturnsID(t *testing.T) {
	c, tr := newTestClient(t, `{"id":"12345"}`)

	data := map[string]any{"message": "hello"}
	id, err := c.Publish(context.Background(), "me", "feed", data)
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	call := tr.last(t)
	assert.Equal(t, "POST", call.method)
	assert.Equal(t, DefaultBaseURL+"me/feed", call.uri)
	assert.Equal(t, data, call.body)
}

func TestPublishDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{name: "missing id", resp: `{"success":true}`},
		{name: "numeric id", resp: `{"id":12345}`},
		{name: "not json", resp: `ok`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.resp)
			id, err := c.Publish(context.Background(), "me", "feed", nil)
			assert.Empty(t, id)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestPostDiscardsBody(t *testing.T) {
	c, tr := newTestClient(t, `not json at all`)

	data := map[string]string{"message": "hi"}
	require.NoError(t, c.Post(context.Background(), "123", "comments", data))

	call := tr.last(t)
	assert.Equal(t, "POST", call.method)
	assert.Equal(t, DefaultBaseURL+"123/comments", call.uri)
	assert.Equal(t, data, call.body)
}

func TestDelete(t *testing.T) {
	c, tr := newTestClient(t, `true`)

	require.NoError(t, c.Delete(context.Background(), "123"))
	call := tr.last(t)
	assert.Equal(t, "POST", call.method)
	assert.Equal(t, DefaultBaseURL+"123", call.uri)
	assert.Equal(t, map[string]string{"method": "delete"}, call.body)

	require.NoError(t, c.DeleteConnection(context.Background(), "123", "likes"))
	call = tr.last(t)
	assert.Equal(t, DefaultBaseURL+"123/likes", call.uri)
	assert.Equal(t, map[string]string{"method": "delete"}, call.body)
}

func TestMutationsPropagateTransportError(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	c, err := NewClient(&fakeTransport{err: boom}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Publish(ctx, "me", "feed", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Post(ctx, "me", "feed", nil), boom)
	assert.ErrorIs(t, c.Delete(ctx, "1"), boom)
	assert.ErrorIs(t, c.DeleteConnection(ctx, "1", "likes"), boom)
}

func TestParseImageType(t *testing.T) {
	typ, err := ParseImageType(" Large ")
	require.NoError(t, err)
	assert.Equal(t, ImageLarge, typ)

	_, err = ParseImageType("huge")
	assert.Error(t, err)
}
