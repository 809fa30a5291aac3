// Package store persists the bearer token and the last API response between runs.
//
// The file backend writes auth_token.json and response_data.json to the working
// directory by default. The Redis backend lets several hosts share one cached token.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when nothing has been stored yet.
var ErrNotFound = errors.New("store: not found")

// Token is the persisted form of a bearer token.
type Token struct {
	Value     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

// NewToken stamps a token value with the given time.
func NewToken(value string, issuedAt time.Time) Token {
	return Token{Value: value, Timestamp: issuedAt.Unix()}
}

// IssuedAt returns the token timestamp as a time.Time.
func (t Token) IssuedAt() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// Store persists the token and the raw body of the last API response.
// Writes overwrite the previous value.
type Store interface {
	GetToken(ctx context.Context) (Token, error)
	PutToken(ctx context.Context, token Token) error
	GetResponse(ctx context.Context) ([]byte, error)
	PutResponse(ctx context.Context, body []byte) error
}

// indentResponse indents a JSON body with four spaces. Bodies that are not valid
// JSON are returned verbatim.
func indentResponse(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "    "); err != nil {
		return body
	}
	return buf.Bytes()
}

// Options selects and configures a Store backend.
type Options struct {
	// Backend is "file" (default) or a redis:// / rediss:// URL.
	Backend      string
	TokenFile    string
	ResponseFile string
	// KeyPrefix namespaces the Redis keys.
	KeyPrefix string
}

// New builds the Store described by opts.
func New(opts Options) (Store, error) {
	switch {
	case opts.Backend == "" || opts.Backend == "file":
		return NewFileStore(opts.TokenFile, opts.ResponseFile), nil
	case strings.HasPrefix(opts.Backend, "redis://"), strings.HasPrefix(opts.Backend, "rediss://"):
		return NewRedisStore(opts.Backend, opts.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (supported: file, redis://...)", opts.Backend)
	}
}
