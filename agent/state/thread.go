package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

var (
	ErrThreadNotFound = errors.New("thread state not found")
	ErrNilThreadState = errors.New("thread state is nil")
	ErrInvalidThread  = errors.New("thread id is empty")
)

// ThreadState is the persistent record of one conversation thread.
//
// Messages accumulate monotonically: nodes only append, never rewrite.
// Intent is derived fresh each turn and is not meaningful across turns.
// Followup is reset at the start of a turn and must be non-empty when the
// turn completes (the controller defaults it from the last message).
type ThreadState struct {
	ThreadID string              `json:"thread_id"`
	Messages []contractx.Message `json:"messages,omitempty"`

	Intent   contractx.Intent `json:"intent,omitempty"`
	AskHuman bool             `json:"ask_human,omitempty"`
	Followup string           `json:"followup,omitempty"`

	// InvoiceLineIDs holds the line ids surfaced by the most recent
	// successful invoice lookup, in result order.
	InvoiceLineIDs []int64 `json:"invoice_line_ids,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewThreadState(threadID string, now time.Time) *ThreadState {
	return &ThreadState{
		ThreadID:  threadID,
		UpdatedAt: now.UTC(),
	}
}

func (t *ThreadState) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// Append adds a message to the transcript. Appending is the only permitted
// mutation of Messages.
func (t *ThreadState) Append(msgs ...contractx.Message) {
	t.Messages = append(t.Messages, msgs...)
}

// LastMessage returns the most recent message, if any.
func (t *ThreadState) LastMessage() (contractx.Message, bool) {
	if len(t.Messages) == 0 {
		return contractx.Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

func (t *ThreadState) Validate() error {
	if t == nil {
		return ErrNilThreadState
	}
	if strings.TrimSpace(t.ThreadID) == "" {
		return ErrInvalidThread
	}
	for i, m := range t.Messages {
		switch m.Role {
		case contractx.RoleUser, contractx.RoleAssistant, contractx.RoleTool:
		default:
			return fmt.Errorf("%w: message %d has invalid role %q", contractx.ErrValidation, i, m.Role)
		}
	}
	return nil
}
