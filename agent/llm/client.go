package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

// Client implements contract.CompletionService on top of the OpenAI-compatible
// chat completions API.
type Client struct {
	sdk   openaisdk.Client
	model string
	cfg   Config
}

var _ contractx.CompletionService = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		sdk:   openaisdk.NewClient(opts...),
		model: strings.TrimSpace(cfg.Model),
		cfg:   cfg,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	params := c.baseParams(req.System, req.Messages)

	if len(req.Tools) > 0 {
		tools := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(req.Tools))
		for _, spec := range req.Tools {
			tools = append(tools, openaisdk.ChatCompletionFunctionTool(openaisdk.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openaisdk.String(spec.Description),
				Parameters:  openaisdk.FunctionParameters(spec.Schema),
			}))
		}
		params.Tools = tools
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Completion{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Completion{}, fmt.Errorf("%w: completion returned no choices", contractx.ErrSchemaViolation)
	}

	choice := resp.Choices[0]
	out := contractx.Completion{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}

	for _, tc := range choice.Message.ToolCalls {
		name := strings.TrimSpace(tc.Function.Name)
		if name == "" {
			return contractx.Completion{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(tc.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return contractx.Completion{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}

		out.ToolCalls = append(out.ToolCalls, contractx.ToolInvocation{
			ID:      tc.ID,
			Name:    name,
			Args:    args,
			RawArgs: rawArgs,
		})
	}

	return out, nil
}

func (c *Client) CompleteStructured(
	ctx context.Context,
	system string,
	messages []contractx.Message,
	schemaName string,
	schema map[string]any,
	out any,
) error {
	params := c.baseParams(system, messages)
	params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
			JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openaisdk.Bool(true),
			},
		},
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: structured completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: structured completion returned no choices", contractx.ErrSchemaViolation)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return fmt.Errorf("%w: structured completion content is empty", contractx.ErrSchemaViolation)
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: decode structured payload: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}

func (c *Client) baseParams(system string, messages []contractx.Message) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    toSDKMessages(system, messages),
		Temperature: openaisdk.Float(float64(c.cfg.Temperature)),
	}
	if c.cfg.MaxCompletionToken > 0 {
		params.MaxTokens = openaisdk.Int(int64(c.cfg.MaxCompletionToken))
	}
	return params
}

func toSDKMessages(system string, messages []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, openaisdk.SystemMessage(system))
	}

	for i := 0; i < len(messages); i++ {
		m := messages[i]
		switch m.Role {
		case contractx.RoleTool:
			// The wire format requires tool results to follow an assistant
			// turn declaring the calls, so reconstruct it from the run of
			// consecutive tool messages.
			j := i
			for j < len(messages) && messages[j].Role == contractx.RoleTool {
				j++
			}
			out = append(out, assistantToolCallTurn(messages[i:j]))
			for _, tm := range messages[i:j] {
				out = append(out, openaisdk.ToolMessage(tm.Content, tm.ToolCallID))
			}
			i = j - 1
		case contractx.RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func assistantToolCallTurn(toolMsgs []contractx.Message) openaisdk.ChatCompletionMessageParamUnion {
	calls := make([]openaisdk.ChatCompletionMessageToolCallUnionParam, 0, len(toolMsgs))
	for _, tm := range toolMsgs {
		args := tm.ToolArgs
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		calls = append(calls, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tm.ToolCallID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tm.ToolName,
					Arguments: args,
				},
			},
		})
	}
	return openaisdk.ChatCompletionMessageParamUnion{
		OfAssistant: &openaisdk.ChatCompletionAssistantMessageParam{
			ToolCalls: calls,
		},
	}
}
