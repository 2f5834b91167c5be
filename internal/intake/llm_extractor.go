package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/pallybot/internal/llm"
	"github.com/sirupsen/logrus"
)

// maxPromptChars bounds the posting text sent to the model.
const maxPromptChars = 20000

// LLMExtractor asks Gemini for the posting's title, company and keywords. Any failure falls
// back to Fallback, so intake keeps working when the model is unavailable.
type LLMExtractor struct {
	Client   llm.Client
	Tier     llm.ModelTier
	Fallback Extractor
	Log      logrus.FieldLogger
}

// NewLLMExtractor returns an extractor on the lite tier backed by the heuristic extractor.
func NewLLMExtractor(client llm.Client, logger logrus.FieldLogger) *LLMExtractor {
	return &LLMExtractor{
		Client:   client,
		Tier:     llm.TierLite,
		Fallback: HeuristicExtractor{},
		Log:      logger,
	}
}

// NewGeminiExtractor connects to Gemini and returns an extractor running on tier. A non-empty
// model replaces the tier's default model. The caller closes the returned client.
func NewGeminiExtractor(ctx context.Context, apiKey string, tier llm.ModelTier, model string, logger logrus.FieldLogger) (*LLMExtractor, llm.Client, error) {
	client, err := llm.NewGeminiClient(ctx, llm.ForTier(tier, model), apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	extractor := NewLLMExtractor(client, logger)
	extractor.Tier = tier
	return extractor, client, nil
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (Extraction, error) {
	out, err := e.extract(ctx, text)
	if err == nil {
		return out, nil
	}
	if e.Fallback == nil {
		return Extraction{}, err
	}

	if e.Log != nil {
		e.Log.WithError(err).Warn("model extraction failed, using heuristic keywords")
	}
	return e.Fallback.Extract(ctx, text)
}

func (e *LLMExtractor) extract(ctx context.Context, text string) (Extraction, error) {
	if e.Client == nil {
		return Extraction{}, &APICallError{Message: "no model client configured"}
	}
	if utf8.RuneCountInString(text) > maxPromptChars {
		text = string([]rune(text)[:maxPromptChars])
	}

	prompt := llm.BuildExtractionPrompt(llm.JobKeywordsSchema(), text)
	raw, err := e.Client.GenerateJSON(ctx, prompt, e.Tier)
	if err != nil {
		return Extraction{}, &APICallError{Message: "keyword extraction", Cause: err}
	}

	var out Extraction
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &out); err != nil {
		return Extraction{}, &ParseError{Message: "failed to decode keyword extraction", Cause: err}
	}

	out.Title = strings.TrimSpace(out.Title)
	out.Company = strings.TrimSpace(out.Company)
	out.Keywords = NormalizeKeywords(out.Keywords)
	if len(out.Keywords) == 0 {
		return Extraction{}, &ParseError{Message: "model returned no keywords"}
	}
	return out, nil
}
