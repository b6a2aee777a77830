package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/models"
	"github.com/spf13/cobra"
)

func newTranslateCmd() *cobra.Command {
	var (
		configPath string
		engine     string
		lang       string
		lines      bool
	)

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text from arguments or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, configPath, func(cfg *config.Config) {
				if engine != "" {
					cfg.Settings.Engine = models.Engine(engine)
				}
				if lang != "" {
					cfg.Settings.TargetLanguage = lang
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}

			if lines {
				out, err := a.session.TranslateDocument(ctx, strings.Split(text, "\n"))
				if err != nil {
					return err
				}
				fmt.Println(strings.Join(out, "\n"))
				return nil
			}

			out, err := a.session.TranslateText(ctx, text)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVar(&engine, "engine", "", "override engine (google, gemini)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "override target language")
	cmd.Flags().BoolVar(&lines, "lines", false, "treat each input line as a paragraph")
	return cmd
}
