// Package llm defines the text-completion contract shared by the outline and
// slide generators, plus helpers for working with JSON-mode responses.
package llm

import (
	"context"
	"errors"
)

var (
	ErrNoResponse    = errors.New("no response")
	ErrEmptyResponse = errors.New("empty response")
)

// Request is a single system + user completion. Schema, when set, is the
// JSON schema the response must satisfy; providers that cannot enforce a
// schema fall back to plain JSON mode.
type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     any
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
