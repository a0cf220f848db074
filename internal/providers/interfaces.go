package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type EmbedRequest struct {
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

// AnswerRequest carries the user question plus the retrieved context the
// model must ground its answer in.
type AnswerRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// Answer is the structured generative result. An empty ModelName signals the
// model is unavailable or misconfigured; callers fall back to the extractive
// path instead of treating it as an error.
type Answer struct {
	Text      string   `json:"answer"`
	Bullets   []string `json:"answer_bullets"`
	ModelName string   `json:"model_name"`
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

type AnswerProvider interface {
	Answer(ctx context.Context, req AnswerRequest) (Answer, error)
}
