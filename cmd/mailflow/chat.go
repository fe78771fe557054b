package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/chat"
	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/service"
)

func newAgent(store service.Storage) (*chat.Agent, error) {
	client, err := createLLMClient()
	if err != nil {
		return nil, err
	}
	return chat.NewAgent(client, store, slog.Default()), nil
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question about your inbox",
		Long: `Ask the assistant about your inbox. Questions mentioning urgent or
important mail, tasks or meetings get focused context; --email answers
about a single message.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emailID, _ := cmd.Flags().GetString("email")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			agent, err := newAgent(store)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			response, err := agent.Ask(cmd.Context(), query, emailID)
			if err != nil {
				return err
			}
			common.LogDebug("Answered chat query", common.Fields{"route": chat.Classify(query, emailID), "email_id": emailID})
			fmt.Println(response) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().String("email", "", "answer about this email ID")
	cmd.AddCommand(chatHistoryCmd())

	return cmd
}

func chatHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear previous questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clearHistory, _ := cmd.Flags().GetBool("clear")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if clearHistory {
				if err := store.ClearChatHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess("Chat history cleared")) //nolint:forbidigo // User-facing output
				return nil
			}

			history, err := store.GetChatHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Println(cli.FormatInfo("No chat history")) //nolint:forbidigo // User-facing output
				return nil
			}
			for _, msg := range history {
				fmt.Println(cli.SubtleStyle.Render(msg.Timestamp.Local().Format("2006-01-02 15:04"))) //nolint:forbidigo // User-facing output
				fmt.Println(cli.BoldStyle.Render("You: ") + msg.UserMessage)                         //nolint:forbidigo // User-facing output
				fmt.Println(cli.BoldStyle.Render("Assistant: ") + msg.AgentResponse + "\n")          //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}

	cmd.Flags().Bool("clear", false, "delete all chat history")
	cmd.Flags().Int("limit", 10, "number of exchanges to show")

	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show an overview of the inbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			// The overview never calls the provider.
			summary, err := chat.NewAgent(nil, store, slog.Default()).InboxSummary(cmd.Context())
			if err != nil {
				return err
			}

			content := cli.RenderKeyValues([][2]string{
				{"Total emails", fmt.Sprint(summary.Stats.TotalEmails)},
				{"Unprocessed", fmt.Sprint(summary.Stats.UnprocessedEmails())},
				{"Categories", inbox.FormatCategories(summary.Stats.Categories)},
				{"Important", fmt.Sprint(summary.ImportantCount)},
				{"To-Do", fmt.Sprint(summary.TodoCount)},
				{"Pending actions", fmt.Sprint(summary.PendingActions)},
			})
			fmt.Println(cli.RenderBox(cli.MailIcon+" Inbox Summary", content)) //nolint:forbidigo // User-facing output

			if len(summary.RecentImportant) > 0 {
				fmt.Println(cli.TitleStyle.Render("Recent important")) //nolint:forbidigo // User-facing output
				for i := range summary.RecentImportant {
					email := &summary.RecentImportant[i]
					fmt.Printf("  %s  %s  %s\n", //nolint:forbidigo // User-facing output
						cli.SubtleStyle.Render(email.Timestamp.Format("2006-01-02 15:04")),
						email.DisplaySender(),
						email.Subject)
				}
			}
			return nil
		},
	}
}
