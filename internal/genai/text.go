// Package genai regenerates calendar copy with Gemini and produces images
// through the DashScope multimodal API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	googlegenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const textModel = "gemini-2.5-flash-lite"

// Content types accepted by Regenerate.
const (
	ContentHook        = "hook"
	ContentCaption     = "caption"
	ContentImagePrompt = "image_prompt"
)

var ErrUnknownContentType = errors.New("unknown content type")

// ItemContext carries the surrounding calendar fields so the model can keep
// the regenerated text consistent with the rest of the post.
type ItemContext struct {
	Platform []string
	Type     string
	Hook     string
	Copy     string
	Date     string
}

// RegenerateRequest asks for a rewrite of one field of a calendar item.
type RegenerateRequest struct {
	CurrentContent string
	ContentType    string
	Corrections    []string
	Context        *ItemContext
}

// TextService wraps the Gemini client for copy regeneration.
type TextService struct {
	client *googlegenai.Client
	model  *googlegenai.GenerativeModel
}

func NewTextService(ctx context.Context, apiKey string) (*TextService, error) {
	client, err := googlegenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(textModel)
	model.SetTemperature(0.9)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(1024)
	return &TextService{client: client, model: model}, nil
}

func (s *TextService) Close() error {
	return s.client.Close()
}

// Regenerate produces a replacement for one content field, honoring the
// client's correction notes when present.
func (s *TextService) Regenerate(ctx context.Context, req RegenerateRequest) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}

	resp, err := s.model.GenerateContent(ctx, googlegenai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", errors.New("empty model response")
	}
	return strings.TrimSpace(text), nil
}

func extractText(resp *googlegenai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(googlegenai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func buildPrompt(req RegenerateRequest) (string, error) {
	var intro, fallback, finalNote string
	switch req.ContentType {
	case ContentHook:
		intro = "You are a social media expert. Regenerate this hook for a social media post."
		fallback = "Make it more engaging and attention-grabbing."
		finalNote = "Provide ONLY the new hook text, nothing else. Keep it concise (1-2 sentences max)."
	case ContentCaption:
		intro = "You are a social media expert. Regenerate this caption for a social media post."
		fallback = "Make it more engaging and compelling."
		finalNote = "Provide ONLY the new caption text, nothing else. Include relevant hashtags and emojis where appropriate."
	case ContentImagePrompt:
		intro = "You are an AI image generation expert. Regenerate this image generation prompt."
		fallback = "Make it more detailed and visually descriptive."
		finalNote = "Provide ONLY the new image prompt text, nothing else. Be specific about visual elements, style, colors, composition, and mood."
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, req.ContentType)
	}

	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\n\nCurrent content: \"")
	sb.WriteString(req.CurrentContent)
	sb.WriteString("\"\n\n")

	if len(req.Corrections) > 0 {
		sb.WriteString("Please address these corrections:\n")
		for _, c := range req.Corrections {
			sb.WriteString("- ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString(fallback)
		sb.WriteString("\n")
	}

	if req.Context != nil {
		sb.WriteString("\nAdditional context:\n")
		platform := strings.Join(req.Context.Platform, ", ")
		if platform == "" {
			platform = "Social Media"
		}
		sb.WriteString("- Platform: " + platform + "\n")
		postType := req.Context.Type
		if postType == "" {
			postType = "Post"
		}
		sb.WriteString("- Post type: " + postType + "\n")
		if req.ContentType != ContentHook && req.Context.Hook != "" {
			sb.WriteString("- Hook: " + req.Context.Hook + "\n")
		}
		if req.ContentType == ContentImagePrompt && req.Context.Copy != "" {
			sb.WriteString("- Caption: " + req.Context.Copy + "\n")
		}
		if req.Context.Date != "" {
			sb.WriteString("- Date: " + req.Context.Date + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(finalNote)
	return sb.String(), nil
}
