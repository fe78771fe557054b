package engine

import (
	"context"

	"github.com/Veraticus/mailflow/internal/model"
)

// Extractor defines the contract for the field extractors used by the pipeline.
type Extractor interface {
	Categorize(ctx context.Context, template string, email *model.Email) (model.Category, error)
	ExtractActionItems(ctx context.Context, template string, email *model.Email) ([]model.ExtractedTask, error)
	DraftReply(ctx context.Context, template string, email *model.Email) (model.ReplyDraft, error)
	AnalyzeUrgency(ctx context.Context, template string, email *model.Email) (model.Urgency, error)
}

// Templates supplies the active prompt template for each kind.
type Templates interface {
	Template(ctx context.Context, kind model.PromptKind) (string, error)
}
