// Package openai provides a document analyzer backed by the OpenAI chat
// completions API with image input.
package openai

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

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// Ensure Analyzer implements the interface.
var _ driven.Analyzer = (*Analyzer)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 240 * time.Second
	DefaultTemperature = 0.1
)

// Config holds configuration for the analyzer.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model must accept image input (default: gpt-4o-mini).
	Model string

	// Timeout bounds one HTTP request (default: 240s). The pipeline applies
	// its own analysis deadline through the request context.
	Timeout time.Duration
}

// Analyzer extracts a document's text and images, uploads the images and
// asks the model for a summary plus one description per image.
type Analyzer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	extractor   driven.Extractor
	promptStore driven.PromptStore
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart is either a text part or an image_url part.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// analysis is the JSON object the model is asked to return.
type analysis struct {
	DocumentSummary   *string                   `json:"document_summary"`
	ImageDescriptions []domain.ImageDescription `json:"image_descriptions"`
}

// New creates an analyzer that reads files with extractor.
func New(cfg Config, extractor driven.Extractor) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("openai: extractor is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Analyzer{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		extractor: extractor,
	}, nil
}

// SetPromptStore sets the store the analysis instructions are loaded from.
// If not set, the built-in instructions are used.
func (a *Analyzer) SetPromptStore(store driven.PromptStore) {
	a.promptStore = store
}

// ModelName returns the model used for analysis.
func (a *Analyzer) ModelName() string {
	return a.model
}

// Analyze implements driven.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, req *driven.AnalysisRequest) (*domain.AnalysisResult, error) {
	text, err := a.extractor.ExtractText(ctx, req.FilePath, req.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	images, err := a.extractor.ExtractImages(ctx, req.FilePath, req.MimeType, req.ImageDir, req.MaxImages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	if text == "" && len(images) == 0 {
		return nil, domain.ErrNoContent
	}

	parts := make([]contentPart, 0, 2+2*len(images))
	if text != "" {
		parts = append(parts, contentPart{Type: "text", Text: text})
	}

	stem := strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	uploaded := 0
	for _, img := range images {
		data, err := os.ReadFile(img.Path)
		if err != nil {
			logger.Warn("Skipping image %s of %s: %v", img.Name, req.FileID, err)
			continue
		}

		url, err := req.Images.Put(ctx, stem+"_"+img.Name, data, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", img.Name, err)
		}
		uploaded++

		parts = append(parts,
			contentPart{Type: "image_url", ImageURL: &imageURL{
				URL:    "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data),
				Detail: "high",
			}},
			contentPart{Type: "text", Text: "Image is available at: " + url},
		)
	}

	parts = append(parts, contentPart{Type: "text", Text: a.instructions(req.Prompt)})

	content, err := a.complete(ctx, parts)
	if err != nil {
		return nil, err
	}

	parsed, err := parseAnalysis(content)
	if err != nil {
		return nil, err
	}

	result := &domain.AnalysisResult{
		ImageDescriptions: parsed.ImageDescriptions,
		CompleteText:      text,
	}
	if parsed.DocumentSummary != nil {
		result.DocumentSummary = *parsed.DocumentSummary
	}
	if len(result.ImageDescriptions) > uploaded {
		result.ImageDescriptions = result.ImageDescriptions[:uploaded]
	}

	logger.Debug("Analyzed %s (%s): %d images, %d descriptions",
		req.FileName, req.FileID, uploaded, len(result.ImageDescriptions))
	return result, nil
}

// complete sends one user message and returns the reply content.
func (a *Analyzer) complete(ctx context.Context, parts []contentPart) (string, error) {
	reqBody := chatRequest{
		Model:          a.model,
		Messages:       []chatMessage{{Role: "user", Content: parts}},
		Temperature:    DefaultTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: openai status %d: %s", domain.ErrTransient, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// parseAnalysis accepts the reply bare or inside a markdown code fence.
func parseAnalysis(content string) (*analysis, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var out analysis
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &out, nil
}

// DefaultInstructions are sent after the document content. %s is the
// configured user prompt.
const DefaultInstructions = `You are an expert document analyst. Your task is to analyze the provided document content and images.
The user's request is: %s

Analysis rules:
1. Provide a concise summary of the document's text. If the text is empty, nonsensical or too ambiguous to summarize, document_summary MUST be null.
2. Provide a detailed description for EACH image, in the order they are presented. If an image is blank, corrupted or too ambiguous to describe, its description MUST be null.
3. If there are no images, image_descriptions must be an empty list.

Respond with a single JSON object and nothing else:
{"document_summary": string or null, "image_descriptions": [{"description": string or null}]}`

func (a *Analyzer) instructions(prompt string) string {
	template := DefaultInstructions
	if a.promptStore != nil {
		if loaded, err := a.promptStore.Load(driven.PromptDocumentAnalysis); err == nil && strings.Contains(loaded, "%s") {
			template = loaded
		}
	}
	if prompt == "" {
		prompt = domain.DefaultPrompt
	}
	return fmt.Sprintf(template, prompt)
}

// Ping validates the service is reachable by checking the /models endpoint.
func (a *Analyzer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (a *Analyzer) Close() error {
	return nil
}
