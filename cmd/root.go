package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"

	"github.com/josephlewis42/myshell/core"
	"github.com/josephlewis42/myshell/core/config"
	"github.com/josephlewis42/myshell/core/logger"
	"github.com/josephlewis42/myshell/core/proc"
	"github.com/spf13/cobra"
)

var (
	cfgPath    string
	command    string
	exitStatus int
)

// loadConfig reads the configuration. Without an explicit --config, a missing
// config.yaml falls back to the built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		if !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// openEventLog starts a new session in the configured event log.
func openEventLog(configuration *config.Configuration) (*logger.SessionLogger, io.Closer, error) {
	if !configuration.EventLogEnabled() {
		return nil, io.NopCloser(nil), nil
	}

	fd, err := configuration.OpenEventLog()
	if err != nil {
		return nil, nil, err
	}
	return logger.NewJsonLinesLogRecorder(fd).NewSession(), fd, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "myshell",
	Short: "A line-oriented command interpreter.",
	Long: `myshell reads one line at a time and runs it.

A line is a single command, or commands joined by one kind of operator:

  a ## b    run a, then b
  a && b    run a and b at the same time
  a > file  append the output of a to file

cd and exit are built in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		events, closer, err := openEventLog(configuration)
		if err != nil {
			return err
		}
		defer closer.Close()

		executor := core.NewExecutor(configuration, proc.StandardIO())
		executor.Log = log.New(cmd.ErrOrStderr(), "[myshell] ", 0)
		executor.Events = events

		shell, err := core.NewShell(executor)
		if err != nil {
			return err
		}
		defer shell.Close()

		if cmd.Flags().Changed("command") {
			exitStatus = shell.RunCommand(cmd.Context(), command)
		} else {
			exitStatus = shell.Run(cmd.Context())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The result is the exit status of the process.
func Execute() int {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
	return exitStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single line and exit")
}
