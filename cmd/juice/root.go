package main

import "os"
import "strings"

import "github.com/rs/zerolog"
import "github.com/spf13/cobra"

import "github.com/songww/juice/backend"

var logger zerolog.Logger

type rootFlags struct {
	logLevel string
	dataDir  string
	backend  string
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "juice",
		Short:         "MNIST examples for the juice layer framework",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(flags.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); LOG_LEVEL env is the fallback")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory holding the MNIST files")
	cmd.PersistentFlags().StringVar(&flags.backend, "backend", "native", "compute backend to run on")

	cmd.AddCommand(downloadCmd(flags))
	cmd.AddCommand(trainCmd(flags))
	cmd.AddCommand(inferCmd(flags))
	return cmd
}

// newLogger builds a console logger. Flag wins over the LOG_LEVEL
// environment variable; info is the default.
func newLogger(level string) zerolog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(parsed).With().Timestamp().Logger()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mnist"
	}
	return home + "/.cache/juice/mnist"
}

func openBackend(name string) (backend.Backend, error) {
	return backend.Open(name)
}
