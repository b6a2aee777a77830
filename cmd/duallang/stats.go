package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/tracker"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		engine     string
		since      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show backend usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()

			if since > 0 && engine != "" {
				total, err := tr.TotalChars(ctx, models.Engine(engine), time.Now().UTC().Add(-since))
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d characters in the last %s\n", engine, total, since)
				return nil
			}

			summaries, err := tr.Summary(ctx, models.Engine(engine))
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENGINE\tLANGUAGE\tREQUESTS\tFAILURES\tSOFT FAILURES\tCHARACTERS\tAVG LATENCY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%dms\n",
					s.Engine, s.TargetLanguage, s.RequestCount, s.Failures, s.SoftFailures, s.TotalChars, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVar(&engine, "engine", "", "filter by engine")
	cmd.Flags().DurationVar(&since, "since", 0, "with --engine, total characters sent in this window")
	return cmd
}
