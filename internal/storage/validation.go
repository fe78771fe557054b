package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
)

// Validation errors. All of them wrap common.ErrValidation.
var (
	ErrNilContext   = fmt.Errorf("%w: context cannot be nil", common.ErrValidation)
	ErrEmptyString  = fmt.Errorf("%w: string parameter cannot be empty", common.ErrValidation)
	ErrNilParameter = fmt.Errorf("%w: parameter cannot be nil", common.ErrValidation)
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", common.ErrValidation)
	ErrInvalidValue = fmt.Errorf("%w: invalid value", common.ErrValidation)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateEmail(email *model.Email) error {
	if email == nil {
		return fmt.Errorf("%w: email", ErrNilParameter)
	}
	var errs []error
	if strings.TrimSpace(email.ID) == "" {
		errs = append(errs, errors.New("missing ID"))
	}
	if strings.TrimSpace(email.Sender) == "" {
		errs = append(errs, errors.New("missing sender"))
	}
	if email.Timestamp.IsZero() {
		errs = append(errs, errors.New("missing timestamp"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, errors.Join(errs...))
	}
	return nil
}

func validateCategory(category model.Category) error {
	if !category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidValue, category)
	}
	return nil
}

func validateActionItem(item *model.ActionItem) error {
	if item == nil {
		return fmt.Errorf("%w: action item", ErrNilParameter)
	}
	if err := validateString(item.EmailID, "emailID"); err != nil {
		return err
	}
	if err := validateString(item.Task, "task"); err != nil {
		return err
	}
	switch item.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return fmt.Errorf("%w: priority %q", ErrInvalidValue, item.Priority)
	}
	return nil
}

func validateDraft(draft *model.Draft) error {
	if draft == nil {
		return fmt.Errorf("%w: draft", ErrNilParameter)
	}
	if err := validateString(draft.Subject, "subject"); err != nil {
		return err
	}
	switch draft.Kind {
	case model.DraftKindReply, model.DraftKindNew, model.DraftKindForward:
	default:
		return fmt.Errorf("%w: draft kind %q", ErrInvalidValue, draft.Kind)
	}
	if draft.Kind == model.DraftKindReply && draft.EmailID == "" {
		return fmt.Errorf("%w: reply draft needs an email", ErrInvalidValue)
	}
	return nil
}

func validatePrompt(prompt *model.PromptTemplate) error {
	if prompt == nil {
		return fmt.Errorf("%w: prompt", ErrNilParameter)
	}
	if err := validateString(prompt.Name, "name"); err != nil {
		return err
	}
	if err := validateString(prompt.Template, "template"); err != nil {
		return err
	}
	return validateString(string(prompt.Kind), "kind")
}
