package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/model"
)

// openaiExtractor implements Extractor against the OpenAI chat completions
// API, sending the receipt as an inline data URL.
type openaiExtractor struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	prompt     string
	types      []config.ExpenseType
}

func newOpenAIExtractor(cfg Config) (Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &openaiExtractor{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		prompt:  buildPrompt(cfg.Types),
		types:   cfg.Types,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *openaiExtractor) Analyze(ctx context.Context, imagePath string) (*model.ReceiptRecord, []string, error) {
	dataURL, err := imageDataURL(imagePath)
	if err != nil {
		return nil, nil, err
	}

	requestBody := map[string]any{
		"model":      e.model,
		"max_tokens": 500,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": e.prompt},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
	}

	body, err := e.post(ctx, "/chat/completions", requestBody)
	if err != nil {
		return nil, nil, err
	}

	var response openaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, nil, common.ErrEmptyResponse
	}

	return ParseRecord(response.Choices[0].Message.Content, e.types)
}

func (e *openaiExtractor) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Bad credentials never get better on retry.
		return &common.RetryableError{
			Err:       fmt.Errorf("openai rejected the API key (status %d)", resp.StatusCode),
			Retryable: false,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai API error (status %d)", resp.StatusCode)
	}
	return nil
}

func (e *openaiExtractor) Close() error { return nil }

func (e *openaiExtractor) post(ctx context.Context, path string, requestBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// imageDataURL inlines the image file as a base64 data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading receipt image: %w", err)
	}

	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".heic":
		mime = "image/heic"
	case ".webp":
		mime = "image/webp"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}
