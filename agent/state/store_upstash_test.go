package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

func newUpstashTestStore(t *testing.T, server *httptest.Server, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		opts...,
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreRedisKeyDefaultPrefix(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server)
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "tunedesk:thread:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "tunedesk:thread:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptyThread(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server)
	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidThread", err)
	}
}

func TestUpstashRedisStoreSaveSetsPrefixedKeyWithTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server, WithTTL(90*time.Second))

	st := NewThreadState("thread-1", time.Now())
	st.Append(contractx.Message{Role: contractx.RoleUser, Content: "hello"})
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "tunedesk:thread:thread-1" {
		t.Fatalf("command[1] = %v", gotCommand[1])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(90) {
		t.Fatalf("ttl args = %v %v, want EX 90", gotCommand[3], gotCommand[4])
	}
}

func TestUpstashRedisStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	seed := NewThreadState("thread-2", time.Now())
	seed.Append(contractx.Message{Role: contractx.RoleUser, Content: "refund please"})
	seed.InvoiceLineIDs = []int64{10, 11}
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server)

	st, err := store.Load(context.Background(), "thread-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.ThreadID != "thread-2" {
		t.Fatalf("ThreadID = %q, want thread-2", st.ThreadID)
	}
	if len(st.Messages) != 1 || st.Messages[0].Content != "refund please" {
		t.Fatalf("messages = %#v", st.Messages)
	}
	if len(st.InvoiceLineIDs) != 2 {
		t.Fatalf("invoice line ids = %#v", st.InvoiceLineIDs)
	}

	if len(gotCommand) != 2 || gotCommand[0] != "GET" || gotCommand[1] != "tunedesk:thread:thread-2" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestUpstashRedisStoreLoadMissingKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server)
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("Load() error = %v, want ErrThreadNotFound", err)
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server)
	_, err := store.Load(context.Background(), "thread-x")
	if err == nil || err.Error() != "WRONGPASS invalid token" {
		t.Fatalf("Load() error = %v, want redis error surfaced", err)
	}
}

func TestUpstashRedisStoreDeleteUsesPrefixedKey(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	store := newUpstashTestStore(t, server, WithKeyPrefix("alt:"))
	if err := store.Delete(context.Background(), "thread-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(gotCommand) != 2 || gotCommand[0] != "DEL" || gotCommand[1] != "alt:thread-3" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		ttl  time.Duration
		want int64
	}{
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
		{time.Millisecond, 1},
	} {
		if got := ttlSeconds(tc.ttl); got != tc.want {
			t.Fatalf("ttlSeconds(%v) = %d, want %d", tc.ttl, got, tc.want)
		}
	}
}
