package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/cli"
)

func actionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List and complete extracted action items",
	}

	cmd.AddCommand(actionsListCmd())
	cmd.AddCommand(actionsDoneCmd())

	return cmd
}

func actionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List action items, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pendingOnly, _ := cmd.Flags().GetBool("pending")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			var completed *bool
			if pendingOnly {
				pending := false
				completed = &pending
			}
			items, err := store.GetActionItems(cmd.Context(), completed)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println(cli.FormatInfo("No action items")) //nolint:forbidigo // User-facing output
				return nil
			}
			for _, item := range items {
				line := fmt.Sprintf("%s #%-4d %-6s %s", cli.FormatCheckbox(item.Completed), item.ID, cli.FormatPriority(item.Priority), item.Task)
				if item.Deadline != "" {
					line += cli.SubtleStyle.Render(" (due " + item.Deadline + ")")
				}
				fmt.Println(line) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}

	cmd.Flags().Bool("pending", false, "only show incomplete items")

	return cmd
}

func actionsDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an action item complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			undo, _ := cmd.Flags().GetBool("undo")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.SetActionItemCompleted(cmd.Context(), id, !undo); err != nil {
				return err
			}
			state := "complete"
			if undo {
				state = "pending"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Action item #%d marked %s", id, state))) //nolint:forbidigo // User-facing output
			return nil
		},
	}

	cmd.Flags().Bool("undo", false, "mark the item pending again")

	return cmd
}
