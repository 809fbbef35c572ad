package state

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

func TestThreadStateValidate(t *testing.T) {
	t.Parallel()

	st := NewThreadState("t-1", time.Now())
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	var nilState *ThreadState
	if err := nilState.Validate(); !errors.Is(err, ErrNilThreadState) {
		t.Fatalf("nil Validate() error = %v, want ErrNilThreadState", err)
	}

	st = NewThreadState("   ", time.Now())
	if err := st.Validate(); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("blank id Validate() error = %v, want ErrInvalidThread", err)
	}

	st = NewThreadState("t-2", time.Now())
	st.Append(contractx.Message{Role: "system", Content: "not allowed in a transcript"})
	if err := st.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("bad role Validate() error = %v, want ErrValidation", err)
	}
}

func TestThreadStateAppendAndLastMessage(t *testing.T) {
	t.Parallel()

	st := NewThreadState("t-1", time.Now())
	if _, ok := st.LastMessage(); ok {
		t.Fatal("LastMessage() on empty transcript should report false")
	}

	st.Append(
		contractx.Message{Role: contractx.RoleUser, Content: "first"},
		contractx.Message{Role: contractx.RoleAssistant, Content: "second"},
	)
	st.Append(contractx.Message{Role: contractx.RoleUser, Content: "third"})

	if len(st.Messages) != 3 {
		t.Fatalf("message count = %d, want 3", len(st.Messages))
	}
	last, ok := st.LastMessage()
	if !ok || last.Content != "third" {
		t.Fatalf("LastMessage() = %#v, %v", last, ok)
	}
}

func TestThreadStateTouchNormalizesToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+7", 7*3600)
	st := NewThreadState("t-1", time.Now())
	st.Touch(time.Date(2026, 3, 1, 12, 0, 0, 0, loc))

	if st.UpdatedAt.Location() != time.UTC {
		t.Fatalf("UpdatedAt location = %v, want UTC", st.UpdatedAt.Location())
	}
	if st.UpdatedAt.Hour() != 5 {
		t.Fatalf("UpdatedAt hour = %d, want 5", st.UpdatedAt.Hour())
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	st := NewThreadState("t-1", time.Now())
	st.Append(contractx.Message{Role: contractx.RoleUser, Content: "hello"})
	st.InvoiceLineIDs = []int64{10, 11}
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Fatalf("messages = %#v", loaded.Messages)
	}
	if len(loaded.InvoiceLineIDs) != 2 {
		t.Fatalf("invoice line ids = %#v", loaded.InvoiceLineIDs)
	}
}

func TestMemoryStoreReturnsSnapshots(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	st := NewThreadState("t-1", time.Now())
	st.Append(contractx.Message{Role: contractx.RoleUser, Content: "original"})
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating a loaded copy must not leak back into the store.
	first, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	first.Messages[0].Content = "tampered"
	first.Append(contractx.Message{Role: contractx.RoleAssistant, Content: "extra"})

	second, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(second.Messages) != 1 || second.Messages[0].Content != "original" {
		t.Fatalf("stored state mutated through loaded copy: %#v", second.Messages)
	}
}

func TestMemoryStoreMissingAndInvalid(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "absent"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("Load() error = %v, want ErrThreadNotFound", err)
	}
	if _, err := store.Load(ctx, "  "); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("Load() error = %v, want ErrInvalidThread", err)
	}
	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilThreadState) {
		t.Fatalf("Save(nil) error = %v, want ErrNilThreadState", err)
	}
	if err := store.Save(ctx, NewThreadState(" ", time.Now())); !errors.Is(err, ErrInvalidThread) {
		t.Fatalf("Save(blank) error = %v, want ErrInvalidThread", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, NewThreadState("t-1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "t-1"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrThreadNotFound", err)
	}
}
