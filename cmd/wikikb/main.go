// Command wikikb queries knowledge base APIs from the terminal:
// wiki titles to entities, redirect groups, raw SPARQL and authority
// cluster searches.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wikitools/wikikb/pkg/logging"
)

const defaultUserAgent = "wikikb/1.0 (https://github.com/wikitools/wikikb)"

func main() {
	// A missing .env file is fine, explicit configuration wins anyway.
	_ = godotenv.Load()

	if err := execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "wikikb",
		Short:         "Knowledge base API client (wiki titles, entities, SPARQL, authority records)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.project, "project", "en.wikipedia.org", "wiki project host")
	flags.IntVar(&app.chunkSize, "chunk-size", 0, "items per request batch (0 = API default)")
	flags.StringVar(&app.format, "format", "csv", "output format: csv or json")
	flags.StringVar(&app.configPath, "config", "", "path to a YAML config file")
	flags.BoolVar(&app.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newEntityCmd(app))
	rootCmd.AddCommand(newRedirectsCmd(app))
	rootCmd.AddCommand(newSparqlCmd(app))
	rootCmd.AddCommand(newViafCmd(app))

	return rootCmd.Execute()
}

// setup resolves the file config and initializes logging. Flags beat
// the config file, the config file beats environment defaults.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := loadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.file = cfg
	}
	if a.file.Project != "" && !cmd.Flags().Changed("project") {
		a.project = a.file.Project
	}
	if a.file.ChunkSize > 0 && a.chunkSize == 0 {
		a.chunkSize = a.file.ChunkSize
	}

	logCfg := logging.Config{
		Level:  logging.LogLevel(a.file.Log.Level),
		Pretty: a.file.Log.Pretty,
		Output: os.Stderr,
	}
	if logCfg.Level == "" {
		logCfg.Level = logging.LevelInfo
	}
	if a.debug {
		logCfg.Level = logging.LevelDebug
	}
	logging.Setup(logCfg)
	return nil
}

func (a *app) userAgent() string {
	if a.file.UserAgent != "" {
		return a.file.UserAgent
	}
	if ua := os.Getenv("WIKIKB_USER_AGENT"); ua != "" {
		return ua
	}
	return defaultUserAgent
}

func (a *app) cacheTTL() time.Duration {
	if a.file.Redis.TTLSeconds > 0 {
		return time.Duration(a.file.Redis.TTLSeconds) * time.Second
	}
	return time.Minute
}
