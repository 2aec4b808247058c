package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent"

type geminiChatParts struct {
	Text string `json:"text"`
}

type geminiChatContent struct {
	Parts []*geminiChatParts `json:"parts"`
	Role  string             `json:"role"`
}

type geminiChatRequest struct {
	Contents []*geminiChatContent `json:"contents"`
}

type geminiChatCandidate struct {
	Content *geminiChatContent `json:"content"`
}

type geminiChatResponse struct {
	Candidates []*geminiChatCandidate `json:"candidates"`
}

// GeminiClient talks to the Generative Language REST endpoint.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:     apiKey,
		endpoint:   geminiEndpoint,
		httpClient: &http.Client{},
	}
}

// Generate folds the system text in as an opening user/model exchange,
// since the v1 endpoint has no dedicated system slot.
func (c *GeminiClient) Generate(ctx context.Context, system string, turns []Turn) (string, error) {
	contents := make([]*geminiChatContent, 0, len(turns)+2)
	if system != "" {
		contents = append(contents,
			&geminiChatContent{Parts: []*geminiChatParts{{Text: system}}, Role: RoleUser},
			&geminiChatContent{Parts: []*geminiChatParts{{Text: "Understood."}}, Role: RoleModel},
		)
	}
	for _, turn := range turns {
		contents = append(contents, &geminiChatContent{
			Parts: []*geminiChatParts{{Text: turn.Text}},
			Role:  turn.Role,
		})
	}

	payloadJson, err := json.Marshal(geminiChatRequest{Contents: contents})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payloadJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: res.StatusCode, Body: string(resBody)}
	}

	var geminiRes geminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", err
	}
	if len(geminiRes.Candidates) == 0 ||
		geminiRes.Candidates[0].Content == nil ||
		len(geminiRes.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty candidate set in response")
	}

	return geminiRes.Candidates[0].Content.Parts[0].Text, nil
}
