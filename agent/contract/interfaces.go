package contract

import "context"

// CompletionService is the LLM boundary. Complete returns either free text
// or tool invocations; CompleteStructured decodes a single strict
// JSON-schema response into out.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	CompleteStructured(ctx context.Context, system string, messages []Message, schemaName string, schema map[string]any, out any) error
}

// ToolGateway exposes named operations with JSON-schema-typed inputs.
// CallTool returns opaque text content (JSON-encoded where structured).
type ToolGateway interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}
