package classifier

import (
	"context"
	"fmt"

	contractx "github.com/avelar/tunedesk/agent/contract"
	statex "github.com/avelar/tunedesk/agent/state"
)

const schemaName = "user_intent"

// intentSchema is the strict JSON schema for the classifier's structured
// output: a single closed-set field.
var intentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": []string{string(contractx.IntentValid), string(contractx.IntentUnknown)},
		},
	},
	"required":             []string{"intent"},
	"additionalProperties": false,
}

type intentPayload struct {
	Intent string `json:"intent"`
}

// Classifier labels the current turn with a closed-set intent using one
// structured-output completion call.
type Classifier struct {
	completions contractx.CompletionService
	instruction string
}

func New(completions contractx.CompletionService, instruction string) *Classifier {
	return &Classifier{
		completions: completions,
		instruction: instruction,
	}
}

// Classify issues the classification request over the full transcript and
// records the result on the thread. AskHuman is set iff the intent is
// unknown. Any transport or decode failure is fatal to the turn.
func (c *Classifier) Classify(ctx context.Context, st *statex.ThreadState) (contractx.Intent, error) {
	if st == nil {
		return "", statex.ErrNilThreadState
	}

	var payload intentPayload
	err := c.completions.CompleteStructured(ctx, c.instruction, st.Messages, schemaName, intentSchema, &payload)
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	intent := contractx.Intent(payload.Intent)
	switch intent {
	case contractx.IntentValid, contractx.IntentUnknown:
	default:
		return "", fmt.Errorf("%w: intent=%q is not in the closed set", contractx.ErrSchemaViolation, payload.Intent)
	}

	st.Intent = intent
	st.AskHuman = intent == contractx.IntentUnknown
	return intent, nil
}
