// Package llm wraps the Gemini generation service. The pipeline treats it
// as an opaque capability that returns text given a prompt.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for content generation.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultTimeout bounds a single generation call so one hung request
	// cannot exhaust the batch budget.
	DefaultTimeout = 60 * time.Second
)

// CrosspostPromptTemplate derives a channel-specific social post from a
// published article.
const CrosspostPromptTemplate = `Write a social media post in %s announcing the article below.
Tone: professional, no hashtags spam (max 3), under 280 characters before the link.
End the post with this link on its own line: %s

Article title: %s

Article excerpt:
%s`

// Client is a client for the Gemini generation service.
type Client struct {
	modelName string
	timeout   time.Duration
	gClient   *genai.Client
}

// NewClient creates a generation client. The API key is read from the
// GEMINI_API_KEY / GOOGLE_GEMINI_API_KEY environment variables or the
// ai.gemini.api_key config key.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			apiKey = viper.GetString("ai.gemini.api_key")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY or ai.gemini.api_key")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	timeout := viper.GetDuration("ai.gemini.timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		modelName: modelName,
		timeout:   timeout,
		gClient:   gClient,
	}, nil
}

// GenerateText sends a prompt to the model and returns the generated text.
// The call carries its own timeout on top of the caller's context.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.modelName)
	}
	return text, nil
}

// CrosspostPrompt builds the stage B prompt for one language variant.
func CrosspostPrompt(language, title, excerpt, canonicalURL string) string {
	return fmt.Sprintf(CrosspostPromptTemplate, language, canonicalURL, title, excerpt)
}
