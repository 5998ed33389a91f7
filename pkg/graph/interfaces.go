package graph

import (
	"context"
	"encoding/json"
)

// Transport is the authenticated HTTP collaborator the client delegates to.
// Implementations return the raw response body on 2xx and a *TransportError otherwise.
type Transport interface {
	Get(ctx context.Context, uri string) ([]byte, error)
	Post(ctx context.Context, uri string, body any) ([]byte, error)
}

// Codec decodes response bodies into caller supplied targets.
type Codec interface {
	Decode(data []byte, v any) error
}

// JSONCodec is the default Codec.
type JSONCodec struct{}

func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
