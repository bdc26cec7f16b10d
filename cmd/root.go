package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cybrota/igloo/internal/auth"
	"github.com/cybrota/igloo/internal/config"
	internalgithub "github.com/cybrota/igloo/internal/github"
	"github.com/cybrota/igloo/internal/orchestrator"
)

var (
	companyName string
	path        string
	outputPath  string
	noRecurse   bool
	batchSize   int
	configPath  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "igloo",
	Short: "Bulk secret scanning across an organization's repositories",
	Long: `igloo enumerates an organization's repositories (or a local directory
tree), clones them, runs the configured secret scanners against each in
bounded concurrent batches, and reports every result that contains
findings.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// best effort; GITHUB_TOKEN may come from a .env file
		godotenv.Load()

		logger := newLogger(verbose)
		opts := &config.Options{
			CompanyName: companyName,
			Path:        path,
			OutputPath:  outputPath,
			NoRecurse:   noRecurse,
			BatchSize:   batchSize,
		}
		if err := opts.Resolve(cmd.Flags().Changed("path")); err != nil {
			return err
		}
		scanners, err := config.Load(configPath)
		if err != nil {
			return err
		}

		var client *internalgithub.Client
		if opts.CompanyName != "" {
			token := auth.LoadToken()
			if token == "" {
				return fmt.Errorf("GITHUB_TOKEN must be set or run 'igloo auth'")
			}
			client = internalgithub.NewClient(token, opts.CompanyName)
		}

		r := orchestrator.NewRunner(logger, client, opts, scanners)
		r.Progress = term.IsTerminal(int(os.Stderr.Fd()))
		return r.Run(cmd.Context())
	},
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&companyName, "company-name", "", "GitHub organization to clone and scan")
	rootCmd.Flags().StringVar(&path, "path", "", "root directory for cloned or pre-existing repositories (default: current directory)")
	rootCmd.Flags().StringVar(&outputPath, "output-path", "", "destination for scan artifacts (default: <path>/scanOutput)")
	rootCmd.Flags().BoolVar(&noRecurse, "no-recurse", false, "scan the single repository at path itself")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "how many clone or scan jobs run concurrently")
	rootCmd.Flags().StringVar(&configPath, "config", "scanners.yaml", "scanner definition file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(authCmd)
}
