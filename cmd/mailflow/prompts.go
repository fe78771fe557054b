package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/prompts"
)

func promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and change prompt templates",
		Long: `Prompt templates drive categorization, action extraction, reply drafting
and urgency analysis. Templates use the {sender}, {subject} and {body} slots.`,
	}

	cmd.AddCommand(promptsListCmd())
	cmd.AddCommand(promptsShowCmd())
	cmd.AddCommand(promptsSetCmd())

	return cmd
}

func parseKind(arg string) (model.PromptKind, error) {
	kind := model.PromptKind(arg)
	if !slices.Contains(prompts.Kinds, kind) {
		return "", &common.UserError{
			Err:         common.ErrValidation,
			UserMessage: fmt.Sprintf("unknown prompt kind %q (valid: %v)", arg, prompts.Kinds),
		}
	}
	return kind, nil
}

func promptsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompt templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			templates, err := prompts.NewService(store).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, tmpl := range templates {
				marker := " "
				if tmpl.Active {
					marker = cli.SuccessStyle.Render(cli.SuccessIcon)
				}
				fmt.Printf("%s %-18s %s %s\n", marker, tmpl.Kind, tmpl.Name, cli.SubtleStyle.Render("v"+tmpl.Version)) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}
}

func promptsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind>",
		Short: "Print the active template for a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			template, err := prompts.NewService(store).Template(cmd.Context(), kind)
			if err != nil {
				return err
			}
			fmt.Println(template) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func promptsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <kind> <file>",
		Short: "Replace the active template for a kind with the contents of file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1]) //nolint:gosec // user supplied template path
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := prompts.NewService(store).Update(cmd.Context(), kind, string(data)); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %s template", kind))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}
