package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrClassificationFailed hides every transport and decoding failure of the
// completion call from API clients; the cause is only logged.
var ErrClassificationFailed = errors.New("failed to analyze body shape")

const defaultTemperature = 0.3

// Reply is the JSON object returned by the model, kept as-is so that fields
// such as confidence or reasoningProcess reach the client untouched.
type Reply map[string]any

// Input carries the data the model classifies. Landmarks and Tone are
// JSON-encoded into the prompt; ImagePath is attached inline when it exists.
type Input struct {
	Landmarks any
	Tone      any
	ImagePath string
}

// Options configures the OpenAI classifier.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAI classifies body shape and undertone through chat completions.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAI builds a classifier with an explicit API key instead of reading the environment.
func NewOpenAI(opts Options, logger *zap.Logger) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4Turbo
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("classifier"),
	}
}

// Classify sends the prompt and returns the decoded JSON reply.
func (o *OpenAI) Classify(ctx context.Context, in Input) (Reply, error) {
	messages, err := o.buildMessages(in)
	if err != nil {
		o.logger.Error("failed to build prompt", zap.Error(err))
		return nil, ErrClassificationFailed
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		o.logger.Error("chat completion failed", zap.Error(err), zap.String("model", o.model))
		return nil, ErrClassificationFailed
	}
	if len(resp.Choices) == 0 {
		o.logger.Error("chat completion returned no choices", zap.String("model", o.model))
		return nil, ErrClassificationFailed
	}

	content := resp.Choices[0].Message.Content
	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		o.logger.Error("failed to decode classification reply", zap.Error(err), zap.String("content", content))
		return nil, ErrClassificationFailed
	}
	switch reply := decoded.(type) {
	case map[string]any:
		return reply, nil
	case nil:
		o.logger.Error("classification reply is null")
		return nil, ErrClassificationFailed
	default:
		// valid JSON without fields to extract
		o.logger.Warn("classification reply is not an object", zap.String("content", content))
		return Reply{}, nil
	}
}

func (o *OpenAI) buildMessages(in Input) ([]openai.ChatCompletionMessage, error) {
	text, err := userPrompt(in.Landmarks, in.Tone, in.ImagePath != "")
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}
	if in.ImagePath != "" {
		data, err := os.ReadFile(in.ImagePath)
		switch {
		case err == nil:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
				},
			})
		case errors.Is(err, os.ErrNotExist):
			o.logger.Warn("reference image missing, classifying without it", zap.String("path", in.ImagePath))
		default:
			return nil, err
		}
	}

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	}, nil
}
