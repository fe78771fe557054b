// Package engine runs the per-email processing pipeline and the batch driver.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

// Processor orchestrates categorization, action extraction and reply drafting.
type Processor struct {
	storage   service.Storage
	extractor Extractor
	templates Templates
	logger    *slog.Logger
	inflight  map[string]struct{}
	mu        sync.Mutex
}

// ProcessingResult is the outcome of one pipeline run. Category is empty when
// categorization failed and Draft is nil when no reply was drafted.
type ProcessingResult struct {
	Draft       *model.Draft
	EmailID     string
	Category    model.Category
	ActionItems []model.ActionItem
	Errors      []string
}

// New creates a processor with the given dependencies.
func New(storage service.Storage, extractor Extractor, templates Templates, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		storage:   storage,
		extractor: extractor,
		templates: templates,
		logger:    logger,
		inflight:  make(map[string]struct{}),
	}
}

// ProcessEmail runs the pipeline for one email. Stage failures are recorded in
// the result and never stop later stages; the email is always marked processed
// once the stages have run. An error is returned only when the pipeline could
// not run (unknown email, concurrent run for the same email) or the final
// processed flag could not be written.
func (p *Processor) ProcessEmail(ctx context.Context, emailID string) (*ProcessingResult, error) {
	release, err := p.acquire(emailID)
	if err != nil {
		return nil, err
	}
	defer release()

	email, err := p.storage.GetEmail(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email %s: %w", emailID, err)
	}

	PipelinesInFlight.Inc()
	defer PipelinesInFlight.Dec()

	logger := p.logger.With("email_id", emailID)
	result := &ProcessingResult{EmailID: emailID}

	category := runStage(func() (model.Category, error) { return p.categorize(ctx, email) })
	if category.OK() {
		result.Category = category.Value
	}
	p.record(logger, result, StageCategorize, category.Err)

	actions := runStage(func() ([]model.ActionItem, error) { return p.extractActions(ctx, email) })
	result.ActionItems = actions.Value
	p.record(logger, result, StageActions, actions.Err)

	reply := skipped[*model.Draft]()
	if category.OK() && category.Value.NeedsReply() {
		reply = runStage(func() (*model.Draft, error) { return p.draftReply(ctx, email) })
	}
	if reply.OK() {
		result.Draft = reply.Value
	}
	p.record(logger, result, StageReply, reply.Err)

	// The terminal state is written even when the caller's context was canceled
	// mid-pipeline so no email is left half processed.
	if err := p.storage.MarkEmailProcessed(context.WithoutCancel(ctx), emailID, true); err != nil {
		EmailsProcessedTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("failed to mark email %s processed: %w", emailID, err)
	}

	outcome := "success"
	if len(result.Errors) > 0 {
		outcome = "stage_errors"
	}
	EmailsProcessedTotal.WithLabelValues(outcome).Inc()

	logger.Info("Processed email",
		"category", result.Category,
		"action_items", len(result.ActionItems),
		"draft", result.Draft != nil,
		"errors", len(result.Errors))

	return result, nil
}

// AnalyzeUrgency scores how quickly an email needs a response.
func (p *Processor) AnalyzeUrgency(ctx context.Context, emailID string) (*model.Urgency, error) {
	email, err := p.storage.GetEmail(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email %s: %w", emailID, err)
	}

	template, err := p.templates.Template(ctx, model.PromptUrgency)
	if err != nil {
		return nil, err
	}

	urgency, err := p.extractor.AnalyzeUrgency(ctx, template, email)
	if err != nil {
		return nil, err
	}
	return &urgency, nil
}

func (p *Processor) categorize(ctx context.Context, email *model.Email) (model.Category, error) {
	template, err := p.templates.Template(ctx, model.PromptCategorization)
	if err != nil {
		return "", err
	}

	category, err := p.extractor.Categorize(ctx, template, email)
	if err != nil {
		return "", err
	}

	if _, err := p.storage.UpsertCategory(ctx, email.ID, category, ""); err != nil {
		return "", err
	}
	return category, nil
}

func (p *Processor) extractActions(ctx context.Context, email *model.Email) ([]model.ActionItem, error) {
	template, err := p.templates.Template(ctx, model.PromptActionExtraction)
	if err != nil {
		return nil, err
	}

	tasks, err := p.extractor.ExtractActionItems(ctx, template, email)
	if err != nil {
		return nil, err
	}

	items := make([]model.ActionItem, 0, len(tasks))
	for _, task := range tasks {
		item := model.ActionItem{
			EmailID:  email.ID,
			Task:     task.Task,
			Deadline: task.Deadline,
			Priority: task.Priority,
		}
		if err := p.storage.AddActionItem(ctx, &item); err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Processor) draftReply(ctx context.Context, email *model.Email) (*model.Draft, error) {
	template, err := p.templates.Template(ctx, model.PromptAutoReply)
	if err != nil {
		return nil, err
	}

	reply, err := p.extractor.DraftReply(ctx, template, email)
	if err != nil {
		return nil, err
	}

	draft := &model.Draft{
		EmailID: email.ID,
		Subject: reply.Subject,
		Body:    reply.Body,
		Tone:    reply.Tone,
		Kind:    model.DraftKindReply,
	}
	if err := p.storage.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (p *Processor) record(logger *slog.Logger, result *ProcessingResult, stage Stage, err error) {
	if err == nil {
		return
	}
	StageErrorsTotal.WithLabelValues(string(stage)).Inc()
	logger.Warn("Pipeline stage failed", "stage", stage, "error", err)
	result.Errors = append(result.Errors, stageError(stage, err))
}

// acquire claims emailID for one pipeline run.
func (p *Processor) acquire(emailID string) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.inflight[emailID]; busy {
		return nil, fmt.Errorf("%w: %s", common.ErrPipelineBusy, emailID)
	}
	p.inflight[emailID] = struct{}{}

	return func() {
		p.mu.Lock()
		delete(p.inflight, emailID)
		p.mu.Unlock()
	}, nil
}
