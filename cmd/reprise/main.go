package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reprise/app"
	"reprise/config"
	"reprise/mask"
	"reprise/services"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "reprise",
		Short:        "Reprise - spaced re-presentation of short passages",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr at debug level")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(repriseCmd())
	rootCmd.AddCommand(dispatchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp lädt Konfiguration und App und schließt sie nach fn wieder.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer logger.Sync()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a motif; reads stdin when content is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("citation")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var citationUUID *string
				if title != "" {
					c, err := a.Citations.GetOrCreateByTitle(ctx, title)
					if err != nil {
						return err
					}
					citationUUID = &c.UUID
				}
				m, err := a.Motifs.Add(ctx, content, citationUUID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), m.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringP("citation", "c", "", "Citation title to attach")
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Split a text into motifs using text generation; reads stdin without file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text []byte
			var err error
			if len(args) == 1 {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("citation")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Extraction == nil {
					return services.ErrGenerationUnavailable
				}
				motifs, err := a.Extraction.Extract(ctx, string(text), title)
				if err != nil {
					return err
				}
				for _, m := range motifs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.UUID, m.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("citation", "c", "", "Citation title for all extracted motifs")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [motif-uuid]",
		Short: "Generate cloze deletions for a motif",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nMax, _ := cmd.Flags().GetInt("max")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Cloze == nil {
					return services.ErrGenerationUnavailable
				}
				created, err := a.Cloze.GenerateForMotif(ctx, args[0], nMax)
				if err != nil {
					return err
				}
				for _, cd := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cd.UUID, mask.String(cd.Pairs()))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntP("max", "n", 0, "Maximum number of sets (0 uses CLOZE_MAX_SETS)")
	return cmd
}

func repriseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprise",
		Short: "Select the next batch and print it without delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				batch, err := a.Repriser.Reprise(ctx)
				if err != nil {
					return err
				}
				if len(batch) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No motifs yet.")
					return nil
				}
				text, err := services.ClozeFormatter(a.Config.MaskToken)(batch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Schedule deliveries for the configured daily targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Dispatcher == nil {
					return errors.New("delivery is not configured")
				}
				outcomes, runErr := a.DispatchDaily(ctx)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(outcomes); err != nil {
						return err
					}
					return runErr
				}
				for _, o := range outcomes {
					line := fmt.Sprintf("%s  %-9s", o.Target.Format("2006-01-02 15:04 MST"), o.Status)
					if o.SetUUID != "" {
						line += fmt.Sprintf("  set=%s size=%d", o.SetUUID, o.Size)
					}
					if o.Error != "" {
						line += "  " + o.Error
					}
					fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(line, " "))
				}
				return runErr
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(b))
	if content == "" {
		return "", errors.New("content is empty")
	}
	return content, nil
}
