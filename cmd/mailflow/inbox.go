package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/model"
)

func inboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Load, list and search emails",
	}

	cmd.AddCommand(inboxLoadCmd())
	cmd.AddCommand(inboxImportCmd())
	cmd.AddCommand(inboxListCmd())
	cmd.AddCommand(inboxStatsCmd())
	cmd.AddCommand(inboxSearchCmd())
	cmd.AddCommand(inboxClearCmd())

	return cmd
}

func inboxLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load emails from a mock inbox JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			result, err := inbox.NewService(store).LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Loaded %d emails", result.Loaded))) //nolint:forbidigo // User-facing output
			if result.Failed > 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%d emails failed to load", result.Failed))) //nolint:forbidigo // User-facing output
				for _, msg := range result.Errors {
					fmt.Println(cli.SubtleStyle.Render("  " + msg)) //nolint:forbidigo // User-facing output
				}
			}
			return nil
		},
	}
}

func inboxImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.eml>...",
		Short: "Import RFC 5322 message files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := inbox.NewService(store)
			var failed int
			for _, path := range args {
				email, err := svc.ImportFile(cmd.Context(), path)
				if err != nil {
					failed++
					common.LogError(err, "Failed to import message", common.Fields{"path": path})
					fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", path, err))) //nolint:forbidigo // User-facing output
					continue
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s → %s", path, email.ID))) //nolint:forbidigo // User-facing output
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages failed to import", failed, len(args))
			}
			return nil
		},
	}
}

func inboxListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emails, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			categoryFlag, _ := cmd.Flags().GetString("category")
			limit, _ := cmd.Flags().GetInt("limit")

			var category model.Category
			if categoryFlag != "" {
				parsed, ok := model.ParseCategory(categoryFlag)
				if !ok {
					return &common.UserError{
						Err:         common.ErrValidation,
						UserMessage: fmt.Sprintf("unknown category %q (valid: Important, Newsletter, Spam, To-Do)", categoryFlag),
					}
				}
				category = parsed
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			summary, err := inbox.NewService(store).Summary(cmd.Context(), category, limit)
			if err != nil {
				return err
			}
			fmt.Println(summary) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().String("category", "", "only list emails in this category")
	cmd.Flags().Int("limit", inbox.SummaryLimit, "maximum number of emails")

	return cmd
}

func inboxStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inbox statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			stats, err := inbox.NewService(store).Stats(cmd.Context())
			if err != nil {
				return err
			}

			content := cli.RenderKeyValues([][2]string{
				{"Total emails", fmt.Sprint(stats.TotalEmails)},
				{"Processed", fmt.Sprint(stats.ProcessedEmails)},
				{"Unprocessed", fmt.Sprint(stats.UnprocessedEmails())},
				{"Categories", inbox.FormatCategories(stats.Categories)},
				{"Action items", fmt.Sprint(stats.TotalActionItems)},
				{"Pending actions", fmt.Sprint(stats.PendingActions)},
			})
			fmt.Println(cli.RenderBox(cli.ChartIcon+" Inbox Statistics", content)) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}

func inboxSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subject, body and sender",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			svc := inbox.NewService(store)
			query := strings.Join(args, " ")
			emails, err := svc.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatTitle(fmt.Sprintf("Results for %q (%d)", query, len(emails)))) //nolint:forbidigo // User-facing output
			if len(emails) == 0 {
				fmt.Println(inbox.NoEmails) //nolint:forbidigo // User-facing output
				return nil
			}
			for i := range emails {
				category, err := svc.CategoryName(cmd.Context(), emails[i].ID)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", cli.SubtleStyle.Render(emails[i].ID), inbox.SummaryLine(&emails[i], category)) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "maximum number of results")

	return cmd
}

func inboxClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every email with its categories, action items and reply drafts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("refusing to clear the inbox without --force")
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := inbox.NewService(store).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Inbox cleared")) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "confirm deletion")

	return cmd
}
