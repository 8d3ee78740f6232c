// Package classifier implements the spam content classifier backed by
// Google's Gemini API. Given a message and recent chat context it returns a
// spam category; any failure fails open to "not spam".
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/LEXUGE/tg-anti-spam/internal/config"
)

// Category is the classifier's verdict for a message.
type Category string

const (
	CategoryScam                 Category = "scam"
	CategoryPhishing             Category = "phishing"
	CategoryNotSuitableForWork   Category = "not_suitable_for_work"
	CategoryUnsolicitedPromotion Category = "unsolicited_promotion"
	CategoryOtherSpam            Category = "other_spam"
	CategoryNotSpam              Category = "not_spam"
)

// Verdict is the structured classification result.
type Verdict struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

// ContextMessage is one entry of the conversational context handed to the
// classifier, already rendered to a sender label plus text.
type ContextMessage struct {
	SenderLabel string
	Text        string
}

// Client defines the classification operation used by the message handler.
type Client interface {
	Check(ctx context.Context, text string, contextMsgs []ContextMessage) (Verdict, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
}

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category": {
			Type:        genai.TypeString,
			Description: "The spam category for the message under review.",
			Enum: []string{
				string(CategoryScam),
				string(CategoryPhishing),
				string(CategoryNotSuitableForWork),
				string(CategoryUnsolicitedPromotion),
				string(CategoryOtherSpam),
				string(CategoryNotSpam),
			},
		},
		"reason": {Type: genai.TypeString, Description: "Short justification for the verdict."},
	},
	Required: []string{"category", "reason"},
}

// NewClient creates a new Gemini-backed classifier. A construction failure is
// the single unrecoverable startup error of the application.
func NewClient(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    verdictSchema,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: moderationSystemInstruction}}},
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	log := logger.With("component", "classifier")
	log.Info("Classifier initialized", "model", cfg.Model)
	return &sdkClient{
		genaiClient:   gi,
		log:           log,
		contentConfig: baseCfg,
		modelName:     cfg.Model,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// Check classifies the message. A transport error is returned to the caller
// (which treats it as not spam); an unparseable response fails open here.
func (c *sdkClient) Check(ctx context.Context, text string, contextMsgs []ContextMessage) (Verdict, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(text, contextMsgs), genai.RoleUser),
	}

	resp, err := c.generateContentWithRetries(ctx, contents)
	if err != nil {
		c.log.ErrorContext(ctx, "Classifier API call failed", "error", err)
		return Verdict{}, fmt.Errorf("classifier call failed: %w", err)
	}

	jsonText, err := extractText(resp)
	if err != nil {
		c.log.WarnContext(ctx, "Classifier returned no usable content, failing open", "error", err)
		return Verdict{Category: CategoryNotSpam, Reason: "empty classifier response"}, nil
	}

	verdict, err := parseVerdict(jsonText)
	if err != nil {
		c.log.WarnContext(ctx, "Failed to parse classifier response, failing open", "error", err, "response_text", jsonText)
		return Verdict{Category: CategoryNotSpam, Reason: "unparseable classifier response"}, nil
	}
	return verdict, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) && i < c.maxRetries {
			c.log.WarnContext(ctx, "Retriable classifier API error, retrying",
				"attempt", i+1, "max_retries", c.maxRetries, "code", apiErr.Code, "delay", c.retryDelay)
			time.Sleep(c.retryDelay)
			continue
		}
		return nil, err
	}
	return nil, err
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("request blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("response contains no candidates")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("response text is empty")
	}
	return text, nil
}

func parseVerdict(jsonText string) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
		return Verdict{}, fmt.Errorf("invalid verdict JSON: %w", err)
	}

	switch v.Category {
	case CategoryScam, CategoryPhishing, CategoryNotSuitableForWork,
		CategoryUnsolicitedPromotion, CategoryOtherSpam, CategoryNotSpam:
		return v, nil
	default:
		return Verdict{}, fmt.Errorf("unknown verdict category %q", v.Category)
	}
}
