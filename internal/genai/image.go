package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	dashScopeBaseURL = "https://dashscope-intl.aliyuncs.com"
	imageModel       = "qwen-image-plus"
	defaultImageSize = "1328*1328"
)

// ErrUpstream wraps non-2xx responses from the image provider.
var ErrUpstream = errors.New("image provider error")

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Prompt         string
	Size           string
	Style          string
	NegativePrompt string
}

// ImageService calls the DashScope multimodal generation endpoint.
type ImageService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewImageService(apiKey string) *ImageService {
	return &ImageService{
		apiKey:  apiKey,
		baseURL: dashScopeBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type imagePayload struct {
	Model string `json:"model"`
	Input struct {
		Messages []imageMessage `json:"messages"`
	} `json:"input"`
	Parameters imageParameters `json:"parameters"`
}

type imageMessage struct {
	Role    string         `json:"role"`
	Content []imageContent `json:"content"`
}

type imageContent struct {
	Text string `json:"text"`
}

type imageParameters struct {
	Size           string `json:"size"`
	N              int    `json:"n"`
	Style          string `json:"style"`
	NegativePrompt string `json:"negative_prompt"`
	Watermark      bool   `json:"watermark"`
	PromptExtend   bool   `json:"prompt_extend"`
}

type imageResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

// Generate returns the URL of one generated image.
func (s *ImageService) Generate(ctx context.Context, req ImageRequest) (string, error) {
	if req.Prompt == "" {
		return "", errors.New("prompt is required")
	}
	if req.Size == "" {
		req.Size = defaultImageSize
	}
	if req.Style == "" {
		req.Style = "<auto>"
	}

	payload := imagePayload{Model: imageModel}
	payload.Input.Messages = []imageMessage{{
		Role:    "user",
		Content: []imageContent{{Text: req.Prompt}},
	}}
	payload.Parameters = imageParameters{
		Size:           req.Size,
		N:              1,
		Style:          req.Style,
		NegativePrompt: req.NegativePrompt,
		Watermark:      false,
		PromptExtend:   true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode image request: %w", err)
	}

	endpoint := s.baseURL + "/api/v1/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call image provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(detail))
	}

	var decoded imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}

	if len(decoded.Output.Choices) == 0 || len(decoded.Output.Choices[0].Message.Content) == 0 {
		return "", fmt.Errorf("%w: no image in response", ErrUpstream)
	}
	imageURL := decoded.Output.Choices[0].Message.Content[0].Image
	if imageURL == "" {
		return "", fmt.Errorf("%w: no image in response", ErrUpstream)
	}
	return imageURL, nil
}
