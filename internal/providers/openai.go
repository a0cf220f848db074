package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// OpenAIProvider uses the OpenAI REST APIs for embeddings and for JSON-mode
// generative answers.
type OpenAIProvider struct {
	keyName    string
	apiKey     string
	embedModel string
	chatModel  string
	client     *http.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	embedModel := strings.TrimSpace(os.Getenv("DOCRAG_OPENAI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	chatModel := strings.TrimSpace(os.Getenv("DOCRAG_OPENAI_CHAT_MODEL"))
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		keyName:    keyName,
		apiKey:     resolveOpenAIKey(keyName),
		embedModel: embedModel,
		chatModel:  chatModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel, Key: o.keyName}
	if o.apiKey == "" {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	payload, _ := json.Marshal(map[string]any{"model": o.embedModel, "input": req.Inputs})
	body, err := o.post(ctx, "https://api.openai.com/v1/embeddings", payload)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request: %w", err)
	}
	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode embedding response: %w", err)
	}
	out := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

// Answer asks the chat model for a strict-JSON answer grounded in the
// retrieved context. A missing key is not an error: the zero ModelName tells
// the caller to take the extractive path.
func (o *OpenAIProvider) Answer(ctx context.Context, req AnswerRequest) (Answer, error) {
	if o.apiKey == "" {
		return Answer{}, nil
	}

	contextText := clipContext(req.Context, maxContextRunes)
	sysPrompt := "You are a concise assistant. Read CONTEXT and answer QUESTION.\n" +
		"Only use info from CONTEXT. Respond with strict JSON having keys: " +
		`["answer", "answer_bullets"]`
	userPrompt := "QUESTION:\n" + req.Question + "\n\nCONTEXT:\n" + contextText

	payload, _ := json.Marshal(map[string]any{
		"model":           o.chatModel,
		"temperature":     answerTemperature(),
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": sysPrompt},
			{"role": "user", "content": userPrompt},
		},
	})
	body, err := o.post(ctx, "https://api.openai.com/v1/chat/completions", payload)
	if err != nil {
		return Answer{}, fmt.Errorf("openai answer request: %w", err)
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Answer{}, fmt.Errorf("decode answer response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Answer{}, fmt.Errorf("openai returned empty choices")
	}

	content := parsed.Choices[0].Message.Content
	var obj struct {
		Answer  string   `json:"answer"`
		Bullets []string `json:"answer_bullets"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		// Model ignored JSON mode; keep the raw text as the answer.
		obj.Answer = content
		obj.Bullets = nil
	}
	return Answer{Text: obj.Answer, Bullets: obj.Bullets, ModelName: o.chatModel}, nil
}

func (o *OpenAIProvider) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

const maxContextRunes = 6000

// clipContext bounds the retrieved context on rune boundaries so a cut never
// splits a multi-byte character.
func clipContext(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func answerTemperature() float64 {
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0.2
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		if k := os.Getenv("DOCRAG_OPENAI_KEY_" + strings.ToUpper(alias)); k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
