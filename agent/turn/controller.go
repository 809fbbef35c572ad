package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/avelar/tunedesk/agent/contract"
	statex "github.com/avelar/tunedesk/agent/state"
)

// Node names the turn controller's states.
type Node string

const (
	NodeClassify   Node = "classify"
	NodeHuman      Node = "human"
	NodeStoreAgent Node = "store_agent"
	NodeFinalize   Node = "finalize"

	// nodeDone is internal: finalize loops back to classify conceptually,
	// but a turn ends when finalize completes and the next inbound message
	// re-enters classify.
	nodeDone Node = ""
)

var ErrUnknownNode = errors.New("unknown controller node")

// Classifier labels a turn with a closed-set intent and flags human
// hand-off on the thread.
type Classifier interface {
	Classify(ctx context.Context, st *statex.ThreadState) (contractx.Intent, error)
}

// StoreAgent runs one tool-calling pass over the thread.
type StoreAgent interface {
	Run(ctx context.Context, st *statex.ThreadState) error
}

type transitionFunc func(ctx context.Context, st *statex.ThreadState) (Node, error)

// Controller is the per-thread conversation state machine. Each inbound user
// message drives one sequential classify -> (human) -> store_agent ->
// finalize pass; there is no parallelism within a turn, and threads are
// isolated from each other through the checkpoint store.
type Controller struct {
	store       statex.Store
	classifier  Classifier
	agent       StoreAgent
	transitions map[Node]transitionFunc
	now         func() time.Time
}

// Result is what a completed turn hands back to the caller. An unknown
// Intent signals that the harness should collect a human-authored message
// before the next turn; AskHuman reports the flag as persisted, which the
// placeholder human node has already cleared by the time the turn completes.
type Result struct {
	ThreadID string
	Followup string
	Intent   contractx.Intent
	AskHuman bool
}

func NewController(store statex.Store, classifier Classifier, agent StoreAgent) (*Controller, error) {
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if agent == nil {
		return nil, errors.New("store agent is required")
	}

	c := &Controller{
		store:      store,
		classifier: classifier,
		agent:      agent,
		now:        time.Now,
	}
	c.transitions = map[Node]transitionFunc{
		NodeClassify:   c.classify,
		NodeHuman:      c.human,
		NodeStoreAgent: c.storeAgent,
		NodeFinalize:   c.finalize,
	}
	return c, nil
}

// HandleTurn runs one full turn for the given thread id and inbound user
// message. Node failures abort the turn but already-appended messages are
// retained and saved: the transcript is an append-only log of what happened
// before the failure.
func (c *Controller) HandleTurn(ctx context.Context, threadID string, text string) (Result, error) {
	if strings.TrimSpace(threadID) == "" {
		return Result{}, statex.ErrInvalidThread
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	st, err := c.loadOrCreate(ctx, threadID)
	if err != nil {
		return Result{}, err
	}

	// Per-turn fields start clean; the transcript does not.
	st.Intent = ""
	st.Followup = ""
	st.Append(contractx.Message{Role: contractx.RoleUser, Content: text})

	if err := c.run(ctx, st); err != nil {
		c.saveBestEffort(ctx, st)
		return Result{}, err
	}

	st.Touch(c.now())
	if err := st.Validate(); err != nil {
		return Result{}, err
	}
	if err := c.store.Save(ctx, st); err != nil {
		return Result{}, fmt.Errorf("save thread state: %w", err)
	}

	return Result{
		ThreadID: st.ThreadID,
		Followup: st.Followup,
		Intent:   st.Intent,
		AskHuman: st.AskHuman,
	}, nil
}

// run walks the transition table from classify until the turn completes.
func (c *Controller) run(ctx context.Context, st *statex.ThreadState) error {
	node := NodeClassify
	for node != nodeDone {
		step, ok := c.transitions[node]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, node)
		}

		next, err := step(ctx, st)
		if err != nil {
			return fmt.Errorf("node %s: %w", node, err)
		}

		log.Debug().
			Str("thread_id", st.ThreadID).
			Str("node", string(node)).
			Str("next", string(next)).
			Msg("turn transition")
		node = next
	}
	return nil
}

func (c *Controller) classify(ctx context.Context, st *statex.ThreadState) (Node, error) {
	intent, err := c.classifier.Classify(ctx, st)
	if err != nil {
		return nodeDone, err
	}
	if intent == contractx.IntentUnknown {
		return NodeHuman, nil
	}
	return NodeStoreAgent, nil
}

// human is a placeholder boundary for a human-in-the-loop interrupt. The
// calling harness detects the hand-off from the unknown intent on the turn
// result and re-injects a human-authored message; within the turn this node
// only clears the flag and proceeds.
func (c *Controller) human(ctx context.Context, st *statex.ThreadState) (Node, error) {
	st.AskHuman = false
	return NodeStoreAgent, nil
}

func (c *Controller) storeAgent(ctx context.Context, st *statex.ThreadState) (Node, error) {
	if err := c.agent.Run(ctx, st); err != nil {
		return nodeDone, err
	}
	return NodeFinalize, nil
}

// finalize enforces the one-followup-per-turn invariant: when no node set a
// follow-up explicitly, it defaults to the content of the most recent
// message.
func (c *Controller) finalize(ctx context.Context, st *statex.ThreadState) (Node, error) {
	if st.Followup == "" {
		last, ok := st.LastMessage()
		if !ok {
			return nodeDone, fmt.Errorf("%w: no messages to finalize from", contractx.ErrValidation)
		}
		st.Followup = last.Content
	}
	if st.Followup == "" {
		return nodeDone, fmt.Errorf("%w: follow-up is empty after finalize", contractx.ErrValidation)
	}
	return nodeDone, nil
}

func (c *Controller) loadOrCreate(ctx context.Context, threadID string) (*statex.ThreadState, error) {
	st, err := c.store.Load(ctx, threadID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrThreadNotFound) {
		return nil, err
	}
	return statex.NewThreadState(threadID, c.now()), nil
}

func (c *Controller) saveBestEffort(ctx context.Context, st *statex.ThreadState) {
	st.Touch(c.now())
	if err := c.store.Save(ctx, st); err != nil {
		log.Warn().Err(err).Str("thread_id", st.ThreadID).Msg("save after failed turn")
	}
}
