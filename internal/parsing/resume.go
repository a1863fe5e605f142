// Package parsing turns extracted résumé text into a structured ParsedResume using a chat-completion model.
package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/prompts"
	"github.com/jonathan/candidate-pipeline/internal/schemas"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"go.uber.org/zap"
)

const promptFile = "resume.json"

// ResumeSchema describes the JSON object the model is asked to return
func ResumeSchema() llm.ExtractionSchema {
	rules, _ := prompts.Lines(promptFile, "parse-resume-rules")

	return llm.ExtractionSchema{
		Name:        "ParsedResume",
		Description: prompts.MustGet(promptFile, "parse-resume-description"),
		Fields: []llm.SchemaField{
			{Name: "name", Description: "candidate's full name", Required: true},
			{Name: "email", Description: "candidate's email address, empty string if absent", Required: true},
			{Name: "phone", Description: "phone number"},
			{Name: "location", Description: "city, region or country"},
			{
				Name:        "experience",
				Type:        `[{"role": string, "company": string, "start_date": string, "end_date": string, "type": "full_time" | "internship"}]`,
				Description: "work history, most recent first; [] when none",
				Required:    true,
			},
			{Name: "urls", Type: "[string]", Description: "personal site, LinkedIn, GitHub and similar links"},
			{Name: "projects", Type: "[string]", Description: "project names"},
			{Name: "certifications", Type: "[string]"},
			{Name: "awards", Type: "[string]"},
			{Name: "interests", Type: "[string]"},
		},
		Rules: rules,
	}
}

// Structurer extracts a ParsedResume from plain text
type Structurer struct {
	chat   llm.ChatClient
	system string
	logger *zap.Logger
}

// NewStructurer creates a Structurer backed by chat. logger may be nil.
func NewStructurer(chat llm.ChatClient, logger *zap.Logger) *Structurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structurer{
		chat:   chat,
		system: llm.BuildSystemInstruction(ResumeSchema()),
		logger: logger,
	}
}

// Structure asks the model for a ParsedResume and validates the reply.
// Upstream failures are returned unchanged; unusable replies yield a SchemaValidationError.
func (s *Structurer) Structure(ctx context.Context, text string) (*types.ParsedResume, error) {
	user, err := prompts.Render(promptFile, "parse-resume-user", map[string]string{
		"Text":  text,
		"Chars": strconv.Itoa(len(text)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	reply, err := s.chat.Complete(ctx, s.system, user)
	if err != nil {
		return nil, err
	}

	resume, err := ParseResumeJSON(reply)
	if err != nil {
		s.logger.Warn("model reply failed validation",
			zap.String("model", s.chat.ChatModel()),
			zap.Int("reply_length", len(reply)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("structured résumé",
		zap.Int("experience", len(resume.Experience)),
		zap.Int("urls", len(resume.URLs)))
	return resume, nil
}

// ParseResumeJSON locates the JSON object in a model reply, validates it and decodes it.
// Surrounding commentary and code fences are ignored.
func ParseResumeJSON(reply string) (*types.ParsedResume, error) {
	raw := llm.ExtractJSONObject(strings.TrimSpace(reply))
	if raw == "" {
		return nil, &SchemaValidationError{Message: "no JSON object in model reply"}
	}

	if err := schemas.ValidateParsedResume([]byte(raw)); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &SchemaValidationError{
				Message: "model reply does not match the résumé schema",
				Fields:  validationErr.Fields(),
				Cause:   err,
			}
		}
		return nil, &SchemaValidationError{Message: "model reply is not valid JSON", Cause: err}
	}

	var resume types.ParsedResume
	if err := json.Unmarshal([]byte(raw), &resume); err != nil {
		return nil, &SchemaValidationError{Message: "failed to decode résumé JSON", Cause: err}
	}

	postProcess(&resume)
	return &resume, nil
}
