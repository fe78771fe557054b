package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/model"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage reply and composed drafts",
	}

	cmd.AddCommand(draftsListCmd())
	cmd.AddCommand(draftsShowCmd())
	cmd.AddCommand(draftsEditCmd())
	cmd.AddCommand(draftsDeleteCmd())
	cmd.AddCommand(draftsComposeCmd())

	return cmd
}

func draftsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			drafts, err := store.GetDrafts(cmd.Context())
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Println(cli.FormatInfo("No drafts")) //nolint:forbidigo // User-facing output
				return nil
			}
			for _, draft := range drafts {
				source := "new"
				if draft.EmailID != "" {
					source = "reply to " + draft.EmailID
				}
				fmt.Printf("#%-4d %s %s\n", draft.ID, draft.Subject, cli.SubtleStyle.Render("("+source+", "+draft.Tone+")")) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}
}

func draftsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			draft, err := store.GetDraft(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDraft(draft)
			return nil
		},
	}
}

func printDraft(draft *model.Draft) {
	fmt.Println(cli.RenderBox(fmt.Sprintf("Draft #%d: %s", draft.ID, draft.Subject), draft.Body)) //nolint:forbidigo // User-facing output
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("tone: %s, kind: %s", draft.Tone, draft.Kind)))  //nolint:forbidigo // User-facing output
}

func draftsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a draft's subject or body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			body, _ := cmd.Flags().GetString("body")
			if subject == "" && body == "" {
				return fmt.Errorf("nothing to change: pass --subject or --body")
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.UpdateDraft(cmd.Context(), id, subject, body); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Draft #%d updated", id))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().String("subject", "", "new subject")
	cmd.Flags().String("body", "", "new body")

	return cmd
}

func draftsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.DeleteDraft(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Draft #%d deleted", id))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func draftsComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <subject>",
		Short: "Write a new email with the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instructions, _ := cmd.Flags().GetString("instructions")
			tone, _ := cmd.Flags().GetString("tone")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			agent, err := newAgent(store)
			if err != nil {
				return err
			}

			draft, err := agent.ComposeDraft(cmd.Context(), args[0], instructions, tone)
			if err != nil {
				return err
			}
			printDraft(draft)
			return nil
		},
	}

	cmd.Flags().String("instructions", "", "what the email should say")
	cmd.Flags().String("tone", "professional", "tone of the email (professional, friendly, formal)")
	_ = cmd.MarkFlagRequired("instructions")

	return cmd
}
