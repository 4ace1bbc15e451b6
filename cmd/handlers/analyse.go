package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"clarify/internal/analyse"
	"clarify/internal/config"
	"clarify/internal/fetch"
	"clarify/internal/llm"
	"clarify/internal/store"

	"github.com/spf13/cobra"
)

// NewAnalyseCmd creates the analyse command for one-off analyses
func NewAnalyseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyse [shared text or URL]",
		Short: "Analyse a link from the terminal and print the verdict as JSON",
		Long: `Run one analysis outside the HTTP API. The argument is treated the
same way as text shared into the app: the last URL in it is extracted,
resolved and analysed.

Examples:
  clarify analyse https://example.com/you-wont-believe-this
  clarify analyse "worth a read? https://youtu.be/dQw4w9WgXcQ"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyse(cmd, strings.Join(args, " "))
		},
	}
	return cmd
}

func runAnalyse(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(cfg.Database.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	service := analyse.NewService(fetch.NewClient(nil), llmClient, st, nil)

	link, err := service.Analyse(ctx, analyse.Request{Input: input, DeviceID: "cli"})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(link)
}
