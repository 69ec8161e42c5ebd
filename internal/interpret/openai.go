package interpret

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIConfig 模型调用参数
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// OpenAI 通过 Responses API 生成 where 子句
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig, extra ...option.RequestOption) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, cfg: cfg}
}

func (o *OpenAI) Interpret(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyQuery
	}
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.cfg.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Temperature: openai.Float(o.cfg.Temperature),
	}
	result, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai interpret: %w", err)
	}
	out := cleanClause(result.OutputText())
	if out == "" {
		return "", fmt.Errorf("openai interpret: empty output")
	}
	return out, nil
}
