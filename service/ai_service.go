package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"jobdroid/config"
	"jobdroid/utils"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	maxAttempts = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 60 * time.Second
)

// AiService answers the device agent's text and structured-output
// requests against the configured LLM backend.
type AiService struct {
	cfg          config.LLMConfig
	httpClient   *http.Client
	openaiClient *openai.Client
	limiter      *rate.Limiter
}

func NewAiService(cfg config.LLMConfig) *AiService {
	s := &AiService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		// Header room under the free-tier request quota.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	if cfg.Provider == config.ProviderOpenAI {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		s.openaiClient = openai.NewClientWithConfig(clientCfg)
	}
	return s
}

// Gemini generateContent wire structures.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GenerateText sends a prompt and returns the raw model reply.
// Rate-limited; 429s and 5xx are retried with exponential backoff.
func (s *AiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := calculateBackoff(attempt - 1)
			log.Warnf("LLM request failed, retry %d/%d in %s: %v", attempt, maxAttempts-1, wait, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		var (
			text      string
			retryable bool
			err       error
		)
		if s.openaiClient != nil {
			text, retryable, err = s.generateOpenAI(ctx, prompt)
		} else {
			text, retryable, err = s.generateGemini(ctx, prompt)
		}
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("llm request failed after %d attempts: %w", maxAttempts, lastErr)
}

// GenerateJSON sends a prompt with a strict-JSON instruction appended
// and unmarshals the cleaned reply into out.
func (s *AiService) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	const jsonInstruction = "\n\nReturn ONLY the raw JSON without any markdown formatting, code blocks, or additional text."

	text, err := s.GenerateText(ctx, prompt+jsonInstruction)
	if err != nil {
		return err
	}

	cleaned := CleanJSONResponse(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse llm json: %w (response: %s)", err, utils.Truncate(cleaned, 200))
	}
	return nil
}

// Ping checks that the backend is reachable with the configured key.
func (s *AiService) Ping(ctx context.Context) error {
	_, err := s.GenerateText(ctx, `Reply with the single word "ok".`)
	return err
}

func (s *AiService) generateGemini(ctx context.Context, prompt string) (string, bool, error) {
	requestData := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: s.cfg.Temperature},
	}
	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.geminiBaseURL(), s.cfg.Model, s.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, utils.Truncate(string(body), 300))
	}

	var responseObj geminiResponse
	if err := json.Unmarshal(body, &responseObj); err != nil {
		return "", false, fmt.Errorf("parse response: %w", err)
	}
	if len(responseObj.Candidates) == 0 {
		return "", false, fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range responseObj.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return "", false, fmt.Errorf("empty candidate text")
	}

	usage := responseObj.UsageMetadata
	log.Debugf("LLM response: model=%s promptTokens=%d candidateTokens=%d totalTokens=%d",
		s.cfg.Model, usage.PromptTokenCount, usage.CandidatesTokenCount, usage.TotalTokenCount)

	return text, false, nil
}

func (s *AiService) generateOpenAI(ctx context.Context, prompt string) (string, bool, error) {
	resp, err := s.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: float32(s.cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			retryable := apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
			return "", retryable, fmt.Errorf("openai request failed: %w", err)
		}
		return "", true, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", false, fmt.Errorf("no choices in response")
	}

	log.Debugf("LLM response: model=%s promptTokens=%d completionTokens=%d totalTokens=%d",
		resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, false, nil
}

func (s *AiService) geminiBaseURL() string {
	if s.cfg.BaseURL != "" {
		return strings.TrimSuffix(strings.TrimSpace(s.cfg.BaseURL), "/")
	}
	return defaultGeminiBaseURL
}

// CleanJSONResponse strips markdown fences and any prose around the
// outermost JSON object. Models wrap JSON in ```json blocks often
// enough that every structured output goes through here.
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return strings.TrimSpace(content)
}

// calculateBackoff returns the wait before retrying, doubling per
// attempt and capped at maxBackoff.
func calculateBackoff(attempt int) time.Duration {
	backoff := baseBackoff * time.Duration(1<<uint(attempt))
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
