// Package generator produces exam questions with an OpenAI-compatible LLM.
// It is the primary question source; any failure here makes the exam flow
// fall back to the pre-authored question bank, so errors are returned as-is
// and never retried.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/qbank"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generator client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint check: %w", err)
	}
	return nil
}

type generatedMCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type generatedDescriptive struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type generatedSet struct {
	MultipleChoice []generatedMCQ         `json:"multiple_choice"`
	Descriptive    []generatedDescriptive `json:"descriptive"`
}

// Generate asks the LLM for a full question set: 8 multiple-choice and 2
// descriptive questions for the subject. The response is parsed and held to
// the same structural invariants as the fallback bank before being accepted.
func (c *Client) Generate(ctx context.Context, stream, subject string) (*model.SelectionResult, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGenerationPrompt(stream, subject)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	result, err := parseGenerated(raw, stream, subject)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parseGenerated decodes and validates the LLM's JSON question set.
func parseGenerated(raw, stream, subject string) (*model.SelectionResult, error) {
	var set generatedSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}
	if got := len(set.MultipleChoice); got != model.ExamMCQCount {
		return nil, fmt.Errorf("LLM returned %d multiple-choice questions, want %d", got, model.ExamMCQCount)
	}
	if got := len(set.Descriptive); got != model.ExamDescriptiveCount {
		return nil, fmt.Errorf("LLM returned %d descriptive questions, want %d", got, model.ExamDescriptiveCount)
	}

	pool := &model.QuestionPool{Stream: stream, Subject: subject}
	for _, q := range set.MultipleChoice {
		pool.MultipleChoice = append(pool.MultipleChoice, model.QuestionRecord{
			Kind:    model.KindMultipleChoice,
			Text:    q.Question,
			Options: q.Options,
			Answer:  q.Answer,
		})
	}
	for _, q := range set.Descriptive {
		pool.Descriptive = append(pool.Descriptive, model.QuestionRecord{
			Kind:   model.KindDescriptive,
			Text:   q.Question,
			Answer: q.Answer,
		})
	}

	if err := qbank.ValidatePool(pool); err != nil {
		return nil, fmt.Errorf("LLM question set rejected: %w", err)
	}

	return &model.SelectionResult{
		Stream:         stream,
		Subject:        subject,
		MultipleChoice: pool.MultipleChoice,
		Descriptive:    pool.Descriptive,
		TotalAvailable: pool.Total(),
		SelectedAt:     time.Now(),
	}, nil
}

func buildGenerationPrompt(stream, subject string) string {
	var sb strings.Builder
	sb.WriteString("You are an exam author for engineering students.\n\n")
	sb.WriteString("STREAM: " + stream + "\n")
	sb.WriteString("SUBJECT: " + subject + "\n\n")
	sb.WriteString("Write a fresh exam with EXACTLY 8 multiple-choice questions and EXACTLY 2 descriptive questions.\n")
	sb.WriteString("Each multiple-choice question has exactly 4 distinct options and the answer must be one of them, verbatim.\n")
	sb.WriteString("Each descriptive question has a model answer of 3-5 sentences.\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"multiple_choice": [{"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}], "descriptive": [{"question": "...", "answer": "..."}]}`)
	sb.WriteString("\n")
	return sb.String()
}
