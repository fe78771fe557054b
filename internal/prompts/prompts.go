// Package prompts manages the prompt templates used by the field extractors.
package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
)

//go:embed defaults.yaml
var defaultTemplates []byte

// Kinds lists every prompt kind the extractors need.
var Kinds = []model.PromptKind{
	model.PromptCategorization,
	model.PromptActionExtraction,
	model.PromptAutoReply,
	model.PromptUrgency,
}

// Store is the subset of service.Storage used by the prompt service.
type Store interface {
	SavePrompt(ctx context.Context, prompt *model.PromptTemplate) error
	GetActivePrompt(ctx context.Context, kind model.PromptKind) (*model.PromptTemplate, error)
	GetPrompts(ctx context.Context) ([]model.PromptTemplate, error)
	UpdatePromptTemplate(ctx context.Context, kind model.PromptKind, template string) error
}

var _ Store = service.Storage(nil)

type templateFile struct {
	Prompts []templateEntry `yaml:"prompts"`
}

type templateEntry struct {
	Active      *bool  `yaml:"active"`
	Kind        string `yaml:"kind"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Template    string `yaml:"template"`
}

// Service reads and maintains prompt templates in the record store.
type Service struct {
	store Store
}

// NewService creates a prompt service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// EnsureDefaults seeds the default templates when the store holds none.
// A non-empty overridePath replaces the embedded defaults with a YAML file of the same shape.
func (s *Service) EnsureDefaults(ctx context.Context, overridePath string) (int, error) {
	existing, err := s.store.GetPrompts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list prompts: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	data := defaultTemplates
	if overridePath != "" {
		data, err = os.ReadFile(overridePath) //nolint:gosec // user supplied config path
		if err != nil {
			return 0, fmt.Errorf("failed to read prompt file: %w", err)
		}
	}

	templates, err := ParseTemplates(data)
	if err != nil {
		return 0, err
	}

	for i := range templates {
		if err := s.store.SavePrompt(ctx, &templates[i]); err != nil {
			return i, fmt.Errorf("failed to seed prompt %q: %w", templates[i].Name, err)
		}
	}

	slog.Info("Loaded default prompts", "count", len(templates))
	return len(templates), nil
}

// ParseTemplates decodes a YAML template file.
func ParseTemplates(data []byte) ([]model.PromptTemplate, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %w", common.ErrInvalidConfig, err)
	}
	if len(file.Prompts) == 0 {
		return nil, fmt.Errorf("%w: prompt file defines no templates", common.ErrInvalidConfig)
	}

	templates := make([]model.PromptTemplate, 0, len(file.Prompts))
	for _, entry := range file.Prompts {
		if entry.Kind == "" || entry.Name == "" || strings.TrimSpace(entry.Template) == "" {
			return nil, fmt.Errorf("%w: prompt %q needs kind, name and template", common.ErrInvalidConfig, entry.Name)
		}
		version := entry.Version
		if version == "" {
			version = "1.0"
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		templates = append(templates, model.PromptTemplate{
			Name:        entry.Name,
			Description: entry.Description,
			Template:    strings.TrimRight(entry.Template, "\n"),
			Kind:        model.PromptKind(entry.Kind),
			Version:     version,
			Active:      active,
		})
	}
	return templates, nil
}

// Template returns the text of the active template for kind.
func (s *Service) Template(ctx context.Context, kind model.PromptKind) (string, error) {
	prompt, err := s.store.GetActivePrompt(ctx, kind)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("no active prompt found for type %s: %w", kind, err)
		}
		return "", err
	}
	return prompt.Template, nil
}

// Update replaces the active template for kind.
func (s *Service) Update(ctx context.Context, kind model.PromptKind, template string) error {
	if err := s.store.UpdatePromptTemplate(ctx, kind, template); err != nil {
		return fmt.Errorf("failed to update %s prompt: %w", kind, err)
	}
	return nil
}

// List returns every stored template.
func (s *Service) List(ctx context.Context) ([]model.PromptTemplate, error) {
	return s.store.GetPrompts(ctx)
}

// Render substitutes the sender, subject and body slots of template verbatim.
func Render(template string, email *model.Email) string {
	return strings.NewReplacer(
		model.SlotSender, email.Sender,
		model.SlotSubject, email.Subject,
		model.SlotBody, email.Body,
	).Replace(template)
}
