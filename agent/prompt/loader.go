package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/store_agent.txt
	storeAgentRaw string

	//go:embed template/intent_classifier.txt
	intentClassifierRaw string

	//go:embed template/media_qna.txt
	mediaQNARaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	StoreAgent       string
	IntentClassifier string
	MediaQNA         string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. The embeds
// are compile-time, so this is safe to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		StoreAgent:       strings.TrimSpace(storeAgentRaw),
		IntentClassifier: strings.TrimSpace(intentClassifierRaw),
		MediaQNA:         strings.TrimSpace(mediaQNARaw),
	}
}
