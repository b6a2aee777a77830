package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/subtitle"
	"github.com/spf13/cobra"
)

func newSubtitlesCmd() *cobra.Command {
	var (
		configPath string
		positionMs int64
		format     string
		bilingual  bool
	)

	cmd := &cobra.Command{
		Use:   "subtitles FILE|URL",
		Short: "Translate a json3 caption track and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			src := args[0]
			var status models.TrackStatus
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				status, err = a.session.LoadTrackURL(ctx, src)
			} else {
				status, err = loadTrackFile(a, src)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "loaded %d sentences\n", status.Groups)

			if err := a.session.RunSubtitles(ctx, positionMs); err != nil {
				return err
			}

			groups, err := a.session.TrackGroups()
			if err != nil {
				return err
			}
			switch format {
			case "vtt":
				fmt.Print(subtitle.FormatVTT(groups, bilingual))
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().Int64Var(&positionMs, "position", 0, "playback position in ms to prioritize")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, vtt)")
	cmd.Flags().BoolVar(&bilingual, "bilingual", false, "include original text in vtt output")
	return cmd
}

func loadTrackFile(a *app, path string) (models.TrackStatus, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.TrackStatus{}, fmt.Errorf("open captions: %w", err)
	}
	defer f.Close()

	doc, err := subtitle.Decode(f)
	if err != nil {
		return models.TrackStatus{}, err
	}
	return a.session.LoadTrack(doc)
}
