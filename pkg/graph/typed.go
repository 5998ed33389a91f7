package graph

import "context"

// Object fetches objectID decoded as T.
func Object[T any](ctx context.Context, c *Client, objectID string) (T, error) {
	return ObjectWithParams[T](ctx, c, objectID, nil)
}

// ObjectWithParams fetches objectID with query parameters, decoded as T.
func ObjectWithParams[T any](ctx context.Context, c *Client, objectID string, params map[string]string) (T, error) {
	var out T
	if err := c.FetchObjectWithParams(ctx, objectID, &out, params); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Connections lists a connection of objectID with elements decoded as T.
func Connections[T any](ctx context.Context, c *Client, objectID, connection string, fields ...string) ([]T, error) {
	return ConnectionsWithParams[T](ctx, c, objectID, connection, fieldsParams(fields))
}

// ConnectionsWithParams lists a connection of objectID with query parameters.
func ConnectionsWithParams[T any](ctx context.Context, c *Client, objectID, connection string, params map[string]string) ([]T, error) {
	var out []T
	if err := c.FetchConnectionsWithParams(ctx, objectID, connection, &out, params); err != nil {
		return nil, err
	}
	return out, nil
}
