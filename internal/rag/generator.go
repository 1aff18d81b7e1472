package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"doc-rag/internal/llmservice"
	"doc-rag/internal/models"
)

var (
	thinkRe = regexp.MustCompile(models.ThinkTag)
	fenceRe = regexp.MustCompile(models.CodeFenceRegex)
)

// Generator asks the language model for an answer grounded in a context.
type Generator struct {
	client       *llmservice.Client
	maxSentences int
	temperature  float64
}

func NewGenerator(client *llmservice.Client, maxSentences int, temperature float64) *Generator {
	if maxSentences <= 0 {
		maxSentences = models.MaxAnswerSentences
	}
	return &Generator{client: client, maxSentences: maxSentences, temperature: temperature}
}

// Generate answers question from contextText. When the model cites nothing,
// the context sources are used instead.
func (g *Generator) Generate(ctx context.Context, question, contextText string, contextSources []string) (models.Answer, error) {
	system := fmt.Sprintf(models.SystemPromptTemplate, models.NotFoundAnswer, models.MaxCitedSources, g.maxSentences)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(models.QuestionPromptTemplate, contextText, question)),
	}

	raw, err := g.client.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return models.Answer{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	answer := parseAnswer(raw)
	if len(answer.Sources) == 0 {
		return models.NewAnswer(answer.Answer, contextSources), nil
	}
	return answer, nil
}

type answerPayload struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// parseAnswer reads the model's JSON reply. Anything that is not a usable
// payload becomes the answer text with no sources.
func parseAnswer(raw string) models.Answer {
	text := strings.TrimSpace(thinkRe.ReplaceAllString(raw, ""))
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var payload answerPayload
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err == nil && strings.TrimSpace(payload.Answer) != "" {
			var sources []string
			for _, s := range payload.Sources {
				if s = strings.TrimSpace(s); s != "" {
					sources = append(sources, s)
				}
			}
			return models.NewAnswer(strings.TrimSpace(payload.Answer), sources)
		}
	}

	log.Debug().Str("reply", text).Msg("Model reply is not a JSON answer, using raw text")
	return models.NewAnswer(text, nil)
}
