package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jamolkhon5/drai/internal/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// testModel — текстовая модель для проверки ключа, как в странице интеграции
const testModel = "gemini-pro"

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(model string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

func defaultSafetySettings() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}

	settings := make([]safetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, safetySetting{
			Category:  category,
			Threshold: "BLOCK_MEDIUM_AND_ABOVE",
		})
	}
	return settings
}

// Generate выполняет ровно один вызов генерации. Повторы — решение
// вызывающего кода, внутри клиента их нет.
func (c *Client) Generate(ctx context.Context, prompt string, image *models.InlineImage, key string) (string, error) {
	parts := make([]part, 0, 2)
	if image != nil {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: image.MimeType,
				Data:     image.Data,
			},
		})
	}
	parts = append(parts, part{Text: personaPreamble + prompt + personaSuffix})

	reqBody := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 8192,
			CandidateCount:  1,
		},
		SafetySettings: defaultSafetySettings(),
	}

	return c.call(ctx, c.model, key, reqBody)
}

// TestConnection проверяет ключ минимальным текстовым запросом
func (c *Client) TestConnection(ctx context.Context, key string) error {
	reqBody := map[string]interface{}{
		"contents": []content{{Parts: []part{{Text: "Hello"}}}},
	}

	_, err := c.call(ctx, testModel, key, reqBody)
	return err
}

func (c *Client) call(ctx context.Context, model, key string, body interface{}) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{
			Kind:    KindConnectivity,
			Message: "Failed to generate response. Please check your connection and try again.",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{
			Kind:    KindConnectivity,
			Message: "Failed to generate response. Please check your connection and try again.",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp.StatusCode, respBody)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &Error{
			Kind:    KindMalformedResponse,
			Message: "Unable to generate response. Please try again.",
			Err:     err,
		}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &Error{
			Kind:    KindMalformedResponse,
			Message: "Unable to generate response. Please try again.",
		}
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

func statusError(status int, body []byte) *Error {
	switch status {
	case http.StatusNotFound:
		return &Error{
			Kind:    KindServiceUnavailable,
			Message: "Model temporarily unavailable. Please try again in a moment.",
		}
	case http.StatusForbidden:
		return &Error{
			Kind:    KindAccessDenied,
			Message: "API access denied. Please check your API key configuration.",
		}
	case http.StatusTooManyRequests:
		return &Error{
			Kind:    KindRateLimited,
			Message: "Rate limit exceeded. Please wait a moment before trying again.",
		}
	}

	backendMsg := "Please try again"
	var errBody struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != nil && errBody.Error.Message != "" {
		backendMsg = errBody.Error.Message
	}

	return &Error{
		Kind:    KindAPIError,
		Message: fmt.Sprintf("Request failed: %s", backendMsg),
	}
}
