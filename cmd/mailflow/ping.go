package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/llm"
)

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured LLM provider responds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := createLLMClient()
			if err != nil {
				return err
			}

			reply, err := llm.Ping(cmd.Context(), client)
			if err != nil {
				fmt.Println(cli.FormatError("Provider did not respond")) //nolint:forbidigo // User-facing output
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s responded: %s", llmConfig().Provider, reply))) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}
