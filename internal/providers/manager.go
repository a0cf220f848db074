package providers

import (
	"fmt"
	"strings"
)

// Manager builds the configured embedding and answer providers. Embeddings
// always have at least the mock provider so local development works without
// keys; the answer provider list may legitimately be empty, in which case
// retrieval falls back to extractive answers.
type Manager struct {
	embed     EmbeddingProvider
	embedRef  ProviderRef
	answer    AnswerProvider
	answerRef ProviderRef
	hasAnswer bool
}

func NewManager(embedSpec, llmSpec string, embedDim int) (*Manager, error) {
	m := &Manager{}

	embedRefs := ParseProviderList(embedSpec)
	if len(embedRefs) == 0 {
		embedRefs = []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	ep, err := buildProvider(embedRefs[0], embedDim)
	if err != nil {
		return nil, err
	}
	embed, ok := ep.(EmbeddingProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support embeddings", embedRefs[0].Raw)
	}
	m.embed = embed
	m.embedRef = embedRefs[0]

	llmRefs := ParseProviderList(llmSpec)
	if len(llmRefs) > 0 {
		lp, err := buildProvider(llmRefs[0], embedDim)
		if err != nil {
			return nil, err
		}
		ans, ok := lp.(AnswerProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support answers", llmRefs[0].Raw)
		}
		m.answer = ans
		m.answerRef = llmRefs[0]
		m.hasAnswer = true
	}
	return m, nil
}

func (m *Manager) EmbeddingProvider() EmbeddingProvider {
	return m.embed
}

func (m *Manager) EmbedRef() ProviderRef {
	return m.embedRef
}

// AnswerProvider returns the configured generative provider, or false when
// none is configured.
func (m *Manager) AnswerProvider() (AnswerProvider, bool) {
	return m.answer, m.hasAnswer
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
