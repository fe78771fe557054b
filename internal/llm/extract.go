package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/prompts"
)

// Defaults back-filled into extracted values when the provider omits a field.
const (
	DefaultTaskDescription = "No task description"
	DefaultReplyBody       = "Thank you for your email. I will review and respond shortly."
	DefaultReplyTone       = "professional"
	DefaultUrgencyScore    = 3
	DefaultUrgencyReason   = "Unable to determine urgency"
	DefaultResponseTime    = "1-2 days"
)

// Extractor field names, used in errors and metrics.
const (
	FieldCategory    = "category"
	FieldActionItems = "action_items"
	FieldReply       = "reply"
	FieldUrgency     = "urgency"
)

// Extractor turns templated completions into typed values. Every method either
// returns a fully populated value or a *common.ExtractionError.
type Extractor struct {
	client Client
	logger *slog.Logger
}

// NewExtractor creates an extractor using client for completions.
func NewExtractor(client Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

// Categorize assigns one of the fixed categories to email.
func (e *Extractor) Categorize(ctx context.Context, template string, email *model.Email) (model.Category, error) {
	text, err := e.client.Complete(ctx, prompts.Render(template, email), CategorizeTemperature, CategorizeMaxTokens)
	if err != nil {
		return "", e.fail(FieldCategory, err)
	}

	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, RefusalSentinel):
		return "", e.fail(FieldCategory, fmt.Errorf("%w: %s", common.ErrProviderRefused, Preview(text)))
	case text == "":
		return "", e.fail(FieldCategory, &common.MalformedOutputError{Preview: Preview("<empty response>")})
	}

	category := ResolveCategory(text)
	e.succeed(FieldCategory)
	e.logger.Debug("categorized email", "email_id", email.ID, "category", category, "response", Preview(text))
	return category, nil
}

// ResolveCategory maps free-form provider text onto a category. An exact
// title-cased match wins, then the first category named anywhere in the text,
// and Important when nothing matches.
func ResolveCategory(text string) model.Category {
	if category := model.Category(titleCase(strings.TrimSpace(text))); category.IsValid() {
		return category
	}

	lower := strings.ToLower(text)
	for _, category := range model.ValidCategories {
		if strings.Contains(lower, strings.ToLower(string(category))) {
			return category
		}
	}
	return model.CategoryImportant
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "to-do" becomes "To-Do".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && prevCased:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToTitle(r))
		default:
			b.WriteRune(r)
		}
		prevCased = unicode.IsLetter(r)
	}
	return b.String()
}

// ExtractActionItems lists the tasks requested by email. A response without a
// tasks list yields no tasks rather than an error.
func (e *Extractor) ExtractActionItems(ctx context.Context, template string, email *model.Email) ([]model.ExtractedTask, error) {
	raw, err := CompleteStructured(ctx, e.client, prompts.Render(template, email), StructuredTemperature)
	if err != nil {
		return nil, e.fail(FieldActionItems, err)
	}

	tasks, err := parseTasks(raw)
	if err != nil {
		return nil, e.fail(FieldActionItems, err)
	}

	e.succeed(FieldActionItems)
	e.logger.Debug("extracted action items", "email_id", email.ID, "count", len(tasks))
	return tasks, nil
}

func parseTasks(raw json.RawMessage) ([]model.ExtractedTask, error) {
	var value any
	if err := decode(raw, &value); err != nil {
		return nil, err
	}

	var entries []any
	switch v := value.(type) {
	case []any:
		entries = v
	case map[string]any:
		switch list := v["tasks"].(type) {
		case nil:
			return []model.ExtractedTask{}, nil
		case []any:
			entries = list
		default:
			return nil, &common.MalformedOutputError{Preview: Preview(string(raw))}
		}
	}

	tasks := make([]model.ExtractedTask, 0, len(entries))
	for _, entry := range entries {
		switch item := entry.(type) {
		case map[string]any:
			task, _ := scalarField(item, "task")
			if task == "" {
				task = DefaultTaskDescription
			}
			deadline, _ := scalarField(item, "deadline")
			priority, _ := scalarField(item, "priority")
			tasks = append(tasks, model.ExtractedTask{
				Task:     task,
				Deadline: deadline,
				Priority: model.NormalizePriority(priority),
			})
		case string:
			if strings.TrimSpace(item) == "" {
				continue
			}
			tasks = append(tasks, model.ExtractedTask{
				Task:     strings.TrimSpace(item),
				Priority: model.PriorityMedium,
			})
		}
	}
	return tasks, nil
}

// DraftReply writes a reply to email. Missing fields are back-filled.
func (e *Extractor) DraftReply(ctx context.Context, template string, email *model.Email) (model.ReplyDraft, error) {
	raw, err := CompleteStructured(ctx, e.client, prompts.Render(template, email), ReplyTemperature)
	if err != nil {
		return model.ReplyDraft{}, e.fail(FieldReply, err)
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return model.ReplyDraft{}, e.fail(FieldReply, err)
	}

	reply := model.ReplyDraft{
		Subject: "Re: " + email.Subject,
		Body:    DefaultReplyBody,
		Tone:    DefaultReplyTone,
	}
	if v, ok := scalarField(fields, "subject"); ok && v != "" {
		reply.Subject = v
	}
	if v, ok := scalarField(fields, "body"); ok && v != "" {
		reply.Body = v
	}
	if v, ok := scalarField(fields, "tone"); ok && v != "" {
		reply.Tone = v
	}

	e.succeed(FieldReply)
	return reply, nil
}

// AnalyzeUrgency scores how quickly email needs a response on a 1-5 scale.
func (e *Extractor) AnalyzeUrgency(ctx context.Context, template string, email *model.Email) (model.Urgency, error) {
	raw, err := CompleteStructured(ctx, e.client, prompts.Render(template, email), StructuredTemperature)
	if err != nil {
		return model.Urgency{}, e.fail(FieldUrgency, err)
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return model.Urgency{}, e.fail(FieldUrgency, err)
	}

	urgency := model.Urgency{
		Score:                 DefaultUrgencyScore,
		Reason:                DefaultUrgencyReason,
		SuggestedResponseTime: DefaultResponseTime,
	}
	if score, ok := numberField(fields, "urgency_score"); ok {
		urgency.Score = int(math.Round(min(max(score, 1), 5)))
	}
	if v, ok := scalarField(fields, "reason"); ok && v != "" {
		urgency.Reason = v
	}
	if v, ok := scalarField(fields, "suggested_response_time"); ok && v != "" {
		urgency.SuggestedResponseTime = v
	}

	e.succeed(FieldUrgency)
	return urgency, nil
}

func (e *Extractor) fail(field string, err error) error {
	extractionErr := &common.ExtractionError{Field: field, Err: err}
	ExtractionsTotal.WithLabelValues(field, string(extractionErr.Cause())).Inc()
	return extractionErr
}

func (e *Extractor) succeed(field string) {
	ExtractionsTotal.WithLabelValues(field, "success").Inc()
}

func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &common.MalformedOutputError{Preview: Preview(string(raw))}
	}
	return nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var value any
	if err := decode(raw, &value); err != nil {
		return nil, err
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, &common.MalformedOutputError{Preview: Preview(string(raw))}
	}
	return fields, nil
}

// scalarField returns a trimmed string for string, number and bool values.
// Missing keys, null and nested values report false.
func scalarField(fields map[string]any, key string) (string, bool) {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func numberField(fields map[string]any, key string) (float64, bool) {
	var text string
	switch v := fields[key].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
