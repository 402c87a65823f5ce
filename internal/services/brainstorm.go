package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrBrainstormNotConfigured = errors.New("brainstorm service is not configured")
	ErrBrainstormEmpty         = errors.New("brainstorm service returned no proposals")
)

// BrainstormEntry is one proposed shoot or edit day
type BrainstormEntry struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime    string  `json:"end_time" validate:"required,datetime=15:04"`
	Format     string  `json:"format" validate:"required,max=255"`
	Reason     string  `json:"reason"`
	AssigneeID *uint64 `json:"assignee_id,omitempty"`
}

// BrainstormResult is what the content-suggestion service proposes
type BrainstormResult struct {
	EditDays  []BrainstormEntry `json:"edit_days"`
	ShootDays []BrainstormEntry `json:"shoot_days"`
}

// Len returns the number of proposed entries
func (r BrainstormResult) Len() int {
	return len(r.EditDays) + len(r.ShootDays)
}

// BrainstormSuggester produces a BrainstormResult for a release
type BrainstormSuggester interface {
	Suggest(ctx context.Context, input SuggestInput) (*BrainstormResult, error)
}

// SuggestInput is the context handed to the suggestion model
type SuggestInput struct {
	ReleaseDate time.Time
	Notes       string
	Roles       []models.MemberRole
}

// BrainstormService asks an OpenAI chat model for shoot and edit days
type BrainstormService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

// NewBrainstormService creates a service for apiKey. An empty key leaves it
// unconfigured.
func NewBrainstormService(apiKey string) *BrainstormService {
	if apiKey == "" {
		return &BrainstormService{model: openai.GPT4o, now: time.Now}
	}
	return NewBrainstormServiceWithConfig(openai.DefaultConfig(apiKey))
}

// NewBrainstormServiceWithConfig creates a service with a custom client
// configuration, e.g. another base URL
func NewBrainstormServiceWithConfig(cfg openai.ClientConfig) *BrainstormService {
	return &BrainstormService{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4o,
		now:    time.Now,
	}
}

// Configured reports whether an API client is available
func (s *BrainstormService) Configured() bool {
	return s != nil && s.client != nil
}

// Suggest asks the model for shoot and edit days leading up to the release
func (s *BrainstormService) Suggest(ctx context.Context, input SuggestInput) (*BrainstormResult, error) {
	if !s.Configured() {
		return nil, ErrBrainstormNotConfigured
	}

	roles := make([]string, 0, len(input.Roles))
	for _, r := range input.Roles {
		roles = append(roles, string(r))
	}

	prompt := fmt.Sprintf(`You plan content production for a music release.

Today: %s
Release date: %s
Team roles: %s

Notes from the artist:
%s

Propose shoot days and edit days before the release. Return JSON only:
{
  "shoot_days": [{"date": "YYYY-MM-DD", "start_time": "HH:MM", "end_time": "HH:MM", "format": "content format name", "reason": "why this format"}],
  "edit_days":  [{"date": "YYYY-MM-DD", "start_time": "HH:MM", "end_time": "HH:MM", "format": "content format name", "reason": "what gets edited"}]
}

Rules:
- dates must be today or later
- end_time must be after start_time
- no text outside the JSON`,
		s.now().UTC().Format(time.DateOnly),
		input.ReleaseDate.Format(time.DateOnly),
		strings.Join(roles, ", "),
		input.Notes,
	)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrBrainstormEmpty
	}

	return ParseBrainstormResult(resp.Choices[0].Message.Content)
}

// ParseBrainstormResult decodes a model reply, tolerating a fenced code block
func ParseBrainstormResult(content string) (*BrainstormResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result BrainstormResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse brainstorm response: %w (response: %s)", err, content)
	}
	if result.Len() == 0 {
		return nil, ErrBrainstormEmpty
	}
	return &result, nil
}
