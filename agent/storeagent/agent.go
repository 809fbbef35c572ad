package storeagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/avelar/tunedesk/agent/contract"
	statex "github.com/avelar/tunedesk/agent/state"
)

const (
	emptyLookupMessage = "We did not find any purchases associated with the information you've provided. " +
		"Are you sure you've entered all of your information correctly?"
	lookupFollowupHeader = "Which of the following purchases would you like to be refunded for?"
)

// Agent is the refund/lookup workflow agent. Given the thread transcript it
// requests one completion with the full gateway catalog attached, executes
// any requested tool calls, and folds the results into assistant messages,
// the follow-up, and typed thread fields.
type Agent struct {
	completions contractx.CompletionService
	gateway     contractx.ToolGateway
	instruction string
}

func New(completions contractx.CompletionService, gateway contractx.ToolGateway, instruction string) (*Agent, error) {
	if completions == nil {
		return nil, errors.New("completion service is required")
	}
	if gateway == nil {
		return nil, errors.New("tool gateway is required")
	}
	return &Agent{
		completions: completions,
		gateway:     gateway,
		instruction: instruction,
	}, nil
}

// Run executes one store-agent pass over the thread. It appends messages and
// may set the follow-up; when it leaves the follow-up unset the controller
// defaults it from the last message.
func (a *Agent) Run(ctx context.Context, st *statex.ThreadState) error {
	if st == nil {
		return statex.ErrNilThreadState
	}

	catalog, err := a.gateway.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list gateway tools: %w", err)
	}

	comp, err := a.completions.Complete(ctx, contractx.CompletionRequest{
		System:   a.instruction,
		Messages: st.Messages,
		Tools:    catalog,
	})
	if err != nil {
		return err
	}

	if len(comp.ToolCalls) > 0 {
		return a.runToolCalls(ctx, st, comp.ToolCalls)
	}

	switch comp.StopReason {
	case contractx.StopReasonStop, contractx.StopReasonToolCalls, "":
		st.Append(contractx.Message{
			Role:    contractx.RoleAssistant,
			Content: comp.Content,
		})
		return nil
	default:
		// Unexpected stop reasons are surfaced to the user rather than
		// swallowed.
		st.Append(contractx.Message{
			Role:    contractx.RoleAssistant,
			Content: fmt.Sprintf("I could not finish responding (stop reason: %s). Please try again.", comp.StopReason),
		})
		return nil
	}
}

// runToolCalls invokes every requested tool in the order the completion
// service requested them, so the resulting tool messages stay deterministic
// for replay.
func (a *Agent) runToolCalls(ctx context.Context, st *statex.ThreadState, calls []contractx.ToolInvocation) error {
	for _, call := range calls {
		content, err := a.gateway.CallTool(ctx, call.Name, call.Args)
		if err != nil {
			// Gateway failures become visible tool results; the turn
			// continues.
			log.Warn().Err(err).Str("tool", call.Name).Msg("tool invocation failed")
			st.Append(contractx.Message{
				Role:       contractx.RoleTool,
				Content:    fmt.Sprintf("Error: %s", err),
				ToolName:   call.Name,
				ToolCallID: call.ID,
				ToolArgs:   call.RawArgs,
			})
			continue
		}

		st.Append(contractx.Message{
			Role:       contractx.RoleTool,
			Content:    content,
			ToolName:   call.Name,
			ToolCallID: call.ID,
			ToolArgs:   call.RawArgs,
		})

		outcome, err := foldToolResult(call.Name, content)
		if err != nil {
			log.Warn().Err(err).Str("tool", call.Name).Msg("tool result undecodable")
			st.Append(contractx.Message{
				Role:    contractx.RoleAssistant,
				Content: fmt.Sprintf("I received a result from %s that I could not interpret.", call.Name),
			})
			continue
		}

		a.applyOutcome(st, outcome)
	}
	return nil
}

func (a *Agent) applyOutcome(st *statex.ThreadState, outcome ToolOutcome) {
	switch outcome.Kind {
	case OutcomeRefund:
		msg := fmt.Sprintf("You have been refunded a total of: $%.2f. Is there anything else I can help with?", outcome.Refunded)
		st.Append(contractx.Message{Role: contractx.RoleAssistant, Content: msg})
		st.Followup = msg

	case OutcomeLookup:
		if len(outcome.Lines) == 0 {
			st.Append(contractx.Message{Role: contractx.RoleAssistant, Content: emptyLookupMessage})
			st.Followup = emptyLookupMessage
			return
		}

		encoded, err := json.Marshal(outcome.Lines)
		if err != nil {
			// Lines came from JSON, so this should not happen; keep the
			// turn alive regardless.
			encoded = []byte("[]")
		}
		st.Append(contractx.Message{Role: contractx.RoleAssistant, Content: string(encoded)})
		st.Followup = lookupFollowupHeader + "\n\n" + renderPurchaseTable(outcome.Lines)

		ids := make([]int64, 0, len(outcome.Lines))
		for _, l := range outcome.Lines {
			ids = append(ids, l.InvoiceLineID)
		}
		st.InvoiceLineIDs = ids

	case OutcomeMedia:
		st.Append(contractx.Message{Role: contractx.RoleAssistant, Content: outcome.Text})
		st.Followup = outcome.Text

	default:
		st.Append(contractx.Message{
			Role:    contractx.RoleAssistant,
			Content: fmt.Sprintf("I tried to use an unsupported tool (%s) and could not complete that step.", outcome.Tool),
		})
	}
}
