package llm

import (
	"bslnav/internal/backend"
	"bslnav/internal/config"
	"bslnav/internal/selection"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultChatModel = openai.GPT4oMini

// maxBodyRunes bounds the function text sent to the model.
const maxBodyRunes = 12000

type Client struct {
	client *openai.Client
	model  string
}

// NewClient configures the chat client from OPENAI_API_KEY, OPENAI_BASE_URL
// and OPENAI_CHAT_MODEL.
func NewClient() *Client {
	return NewClientWithConfig(
		config.Get("OPENAI_API_KEY", "openai_key"),
		config.Get("OPENAI_BASE_URL", "openai_base_url"),
		config.Get("OPENAI_CHAT_MODEL", "openai_chat_model"),
	)
}

// NewClientWithConfig builds a client without reading the environment.
func NewClientWithConfig(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultChatModel
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const reviewPrompt = `Ты эксперт по платформе 1С:Предприятие и языку BSL.
Проанализируй процедуру или функцию: опиши назначение, найди ошибки,
проблемы производительности (запросы в цикле, лишние обращения к базе),
нарушения стандартов разработки 1С и предложи улучшения.
Отвечай кратко, списком, на русском языке.`

// AnalyzeFunction asks the model for a review of the resolved function.
// graph may be nil; when present its callers and callees are added as context.
func (c *Client) AnalyzeFunction(ctx context.Context, d *selection.Descriptor, graph *backend.CallGraph) (string, error) {
	if d == nil || d.FunctionName == "" {
		return "", fmt.Errorf("function name is required")
	}
	if strings.TrimSpace(d.FunctionBody) == "" {
		return "", fmt.Errorf("function %s has no source text", d.FunctionName)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisInput(d, graph)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildAnalysisInput(d *selection.Descriptor, graph *backend.CallGraph) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Функция: %s\n", d.FunctionName)
	if d.ModuleName != "" {
		fmt.Fprintf(&sb, "Модуль: %s\n", d.ModuleName)
	}
	if d.Configuration != "" {
		fmt.Fprintf(&sb, "Объект конфигурации: %s\n", d.Configuration)
	}
	if graph != nil {
		writeRefs(&sb, "Вызывается из", graph.CalledBy)
		writeRefs(&sb, "Вызывает", graph.CallsTo)
	}

	body := d.FunctionBody
	if runes := []rune(body); len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes]) + "\n// ..."
	}
	sb.WriteString("\nКод:\n```bsl\n")
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

func writeRefs(sb *strings.Builder, title string, refs []backend.CallRef) {
	if len(refs) == 0 {
		return
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.String())
	}
	fmt.Fprintf(sb, "%s: %s\n", title, strings.Join(names, ", "))
}
