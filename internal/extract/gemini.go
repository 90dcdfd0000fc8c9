package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/expenseops/autoexpense/internal/common"
	"github.com/expenseops/autoexpense/internal/config"
	"github.com/expenseops/autoexpense/internal/model"
)

// geminiExtractor implements Extractor using Google Gemini.
type geminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	prompt string
	types  []config.ExpenseType
}

func newGeminiExtractor(cfg Config) (Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", common.ErrMissingConfig)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &geminiExtractor{
		client: client,
		model:  client.GenerativeModel(modelName),
		prompt: buildPrompt(cfg.Types),
		types:  cfg.Types,
	}, nil
}

func (e *geminiExtractor) Analyze(ctx context.Context, imagePath string) (*model.ReceiptRecord, []string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading receipt image: %w", err)
	}

	parts := []genai.Part{
		genai.ImageData(imageFormat(imagePath), data),
		genai.Text(e.prompt),
	}

	resp, err := e.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, nil, common.ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return ParseRecord(text.String(), e.types)
}

func (e *geminiExtractor) Verify(ctx context.Context) error {
	resp, err := e.model.GenerateContent(ctx, genai.Text("Reply with the single word ok."))
	if err != nil {
		return fmt.Errorf("gemini connection check: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return common.ErrEmptyResponse
	}
	return nil
}

func (e *geminiExtractor) Close() error {
	return e.client.Close()
}

// imageFormat returns the format suffix genai.ImageData expects.
func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".webp":
		return "webp"
	case ".heic":
		return "heic"
	default:
		return "jpeg"
	}
}
