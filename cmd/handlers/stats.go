package handlers

import (
	"fmt"

	"clarify/internal/config"
	"clarify/internal/store"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts for the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := store.New(cfg.Database.DataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			stats, err := st.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			fmt.Printf("Analysed links:  %d\n", stats.AnalysedLinks)
			fmt.Printf("User history:    %d\n", stats.UserHistory)
			fmt.Printf("Device history:  %d\n", stats.DeviceHistory)
			fmt.Printf("Failed links:    %d\n", stats.FailedLinks)
			fmt.Printf("Devices:         %d\n", stats.Devices)
			fmt.Printf("Feedback:        %d\n", stats.Feedback)
			fmt.Printf("Subscribers:     %d\n", stats.Subscribers)
			return nil
		},
	}
}
