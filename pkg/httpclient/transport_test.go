package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-graph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportGetAttachesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,name", r.URL.Query().Get("fields"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	tr := NewTransport(Options{Timeout: 2 * time.Second, AccessToken: "secret"})
	body, err := tr.Get(context.Background(), srv.URL+"/me?fields=id%2Cname")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(body))
}

func TestTransportPostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"method": "delete"}, body)
		w.Write([]byte(`true`))
	}))
	defer srv.Close()

	tr := NewTransport(Options{Timeout: 2 * time.Second})
	body, err := tr.Post(context.Background(), srv.URL+"/123", map[string]string{"method": "delete"})
	require.NoError(t, err)
	assert.Equal(t, "true", string(body))
}

func TestTransportMapsGraphErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	tr := NewTransport(Options{Timeout: 2 * time.Second})
	_, err := tr.Get(context.Background(), srv.URL+"/me")
	require.Error(t, err)

	var terr *graph.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusBadRequest, terr.StatusCode)
	assert.Equal(t, "Invalid OAuth access token.", terr.GraphMessage)
	assert.Equal(t, "OAuthException", terr.GraphType)
	assert.Equal(t, 190, terr.GraphCode)
}

func TestTransportNon2xxWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport(Options{Timeout: 2 * time.Second})
	_, err := tr.Post(context.Background(), srv.URL+"/me/feed", map[string]any{"message": "x"})

	var terr *graph.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
	assert.Equal(t, "nope", terr.Body)
	assert.Empty(t, terr.GraphMessage)
}

func TestTransportNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewTransport(Options{Timeout: time.Second})
	_, err := tr.Get(context.Background(), url+"/me")

	var terr *graph.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.StatusCode)
	assert.NotNil(t, terr.Unwrap())
}

func TestClientOverTransportEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/friends":
			w.Write([]byte(`{"data":[{"id":"1","name":"a"},{"id":"2","name":"b"}]}`))
		case "/me/feed":
			w.Write([]byte(`{"id":"me_99"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := graph.NewClient(NewTransport(Options{Timeout: 2 * time.Second}), nil, graph.WithBaseURL(srv.URL))
	require.NoError(t, err)

	friends, err := graph.Connections[graph.Reference](context.Background(), client, "me", "friends", "id", "name")
	require.NoError(t, err)
	assert.Len(t, friends, 2)

	id, err := client.Publish(context.Background(), "me", "feed", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "me_99", id)

	err = client.Delete(context.Background(), "missing")
	var terr *graph.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}
