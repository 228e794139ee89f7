// Package hostapi declares the query executor collaborators and decodes the
// response envelopes they return.
package hostapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

// DQLExecutor runs a DQL statement against the graph engine and returns the
// raw response envelope: {"data": ..., "errors": [...], "extensions": ...}.
type DQLExecutor interface {
	ExecuteDQL(ctx context.Context, stmt string, vars map[string]string, isMutation bool) ([]byte, error)
}

// GQLExecutor runs a GraphQL statement and returns the raw response envelope.
type GQLExecutor interface {
	ExecuteGQL(ctx context.Context, stmt string, vars map[string]string) ([]byte, error)
}

// DQLExecutorFunc adapts a function to DQLExecutor.
type DQLExecutorFunc func(ctx context.Context, stmt string, vars map[string]string, isMutation bool) ([]byte, error)

func (f DQLExecutorFunc) ExecuteDQL(ctx context.Context, stmt string, vars map[string]string, isMutation bool) ([]byte, error) {
	return f(ctx, stmt, vars, isMutation)
}

// ResponseError is one entry of an envelope's errors array.
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Response is a decoded envelope.
type Response[T any] struct {
	Data       T               `json:"data"`
	Errors     []ResponseError `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// envelope keeps data raw so absence can be told apart from emptiness.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Errors     []ResponseError `json:"errors"`
	Extensions map[string]any  `json:"extensions"`
}

// Query executes a read-only DQL statement and decodes its data into T.
func Query[T any](ctx context.Context, exec DQLExecutor, stmt string, vars map[string]string) (*Response[T], error) {
	raw, err := exec.ExecuteDQL(ctx, stmt, vars, false)
	if err != nil {
		return nil, &apperr.QueryExecutionError{Op: "dql query", Err: err}
	}
	return decodeResponse[T]("dql query", raw)
}

// Mutate executes a DQL mutation.
func Mutate(ctx context.Context, exec DQLExecutor, stmt string, vars map[string]string) (*Response[apptype.MutationResult], error) {
	raw, err := exec.ExecuteDQL(ctx, stmt, vars, true)
	if err != nil {
		return nil, &apperr.QueryExecutionError{Op: "dql mutation", Err: err}
	}
	return decodeResponse[apptype.MutationResult]("dql mutation", raw)
}

// GraphQL executes a GraphQL statement and decodes its data into T.
func GraphQL[T any](ctx context.Context, exec GQLExecutor, stmt string, vars map[string]string) (*Response[T], error) {
	raw, err := exec.ExecuteGQL(ctx, stmt, vars)
	if err != nil {
		return nil, &apperr.QueryExecutionError{Op: "graphql", Err: err}
	}
	return decodeResponse[T]("graphql", raw)
}

func decodeResponse[T any](op string, raw []byte) (*Response[T], error) {
	env, err := parseEnvelope(op, raw)
	if err != nil {
		return nil, err
	}
	resp := &Response[T]{Errors: env.Errors, Extensions: env.Extensions}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &resp.Data); err != nil {
			return nil, &apperr.DecodeError{Reason: "malformed data payload", Err: err}
		}
	}
	return resp, nil
}

func parseEnvelope(op string, raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &apperr.DecodeError{Reason: "malformed envelope", Err: err}
	}
	if len(env.Errors) > 0 {
		return nil, &apperr.QueryExecutionError{Op: op, Err: joinErrors(env.Errors)}
	}
	return &env, nil
}

// DecodeList extracts the list stored under key in the envelope's data
// payload. A missing payload, a missing or null key, or a malformed value is
// a DecodeError; an empty array is a valid empty result. Order is kept as
// returned by the engine.
func DecodeList[T any](raw []byte, key string) ([]T, error) {
	env, err := parseEnvelope("dql query", raw)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &apperr.DecodeError{Key: key, Reason: "missing data payload", Err: apperr.ErrMissingKey}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, &apperr.DecodeError{Key: key, Reason: "data payload is not an object", Err: err}
	}
	value, ok := payload[key]
	if !ok || string(value) == "null" {
		return nil, &apperr.DecodeError{Key: key, Err: apperr.ErrMissingKey}
	}

	var list []T
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, &apperr.DecodeError{Key: key, Reason: "malformed list", Err: err}
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func joinErrors(errs []ResponseError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// EncodeVars renders variables as the JSON object the engine expects.
// A nil map encodes as {}.
func EncodeVars(vars map[string]string) ([]byte, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	return b, nil
}
