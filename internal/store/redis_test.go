package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore("redis://"+mr.Addr()+"/0", "test")
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)

	if _, err := s.GetToken(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetToken() on empty store error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetResponse(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetResponse() on empty store error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	issued := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	if err := s.PutToken(ctx, NewToken("first", issued)); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}
	if err := s.PutToken(ctx, NewToken("second", issued.Add(time.Hour))); err != nil {
		t.Fatalf("PutToken() error = %v", err)
	}

	got, err := s.GetToken(ctx)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got.Value != "second" {
		t.Errorf("Value = %q, want %q (writes must overwrite)", got.Value, "second")
	}
	if !got.IssuedAt().Equal(issued.Add(time.Hour)) {
		t.Errorf("IssuedAt() = %v, want %v", got.IssuedAt(), issued.Add(time.Hour))
	}

	raw, err := mr.Get("test:token")
	if err != nil {
		t.Fatalf("miniredis Get() error = %v", err)
	}
	want := `{"token":"second","timestamp":` + "1792141200" + `}`
	if raw != want {
		t.Errorf("stored token = %s, want %s", raw, want)
	}
}

func TestRedisStore_PutResponse(t *testing.T) {
	tests := []struct {
		name string
		body []string
		want string
	}{
		{
			name: "JSON Is Indented",
			body: []string{`{"id":"vm-1","status":"ok"}`},
			want: "{\n    \"id\": \"vm-1\",\n    \"status\": \"ok\"\n}",
		},
		{
			name: "Non JSON Stored Verbatim",
			body: []string{"accepted"},
			want: "accepted",
		},
		{
			name: "Last Write Wins",
			body: []string{`{"vm":"a"}`, `{"vm":"b"}`},
			want: "{\n    \"vm\": \"b\"\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newTestRedisStore(t)

			for _, body := range tt.body {
				if err := s.PutResponse(ctx, []byte(body)); err != nil {
					t.Fatalf("PutResponse() error = %v", err)
				}
			}
			got, err := s.GetResponse(ctx)
			if err != nil {
				t.Fatalf("GetResponse() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("GetResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore("redis://"+mr.Addr(), "")
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer s.Close()

	if err := s.PutResponse(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("PutResponse() error = %v", err)
	}
	if !mr.Exists("vmpower:response") {
		t.Errorf("keys = %v, want vmpower:response", mr.Keys())
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	_, err := s.GetToken(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetToken() with server down error = %v, want connection error", err)
	}
}
