// Package cmd provides the command-line interface for desim.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

const envPrefix = "DESIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "desim",
	Short: "desim runs discrete-event simulation experiments.",
	Long: `desim runs discrete-event simulation experiments. Flags can also ` +
		`be given as DESIM_* environment variables, for example in a .env ` +
		`file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: setUp,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level, one of panic, fatal, error, warn, info, debug, trace")
}

func setUp(cmd *cobra.Command, _ []string) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	err = applyEnv(cmd.Flags())
	if err != nil {
		return err
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return err
	}

	logrus.SetLevel(level)

	return nil
}

// applyEnv fills every flag that is not given on the command line from the
// matching DESIM_* variable.
func applyEnv(flags *pflag.FlagSet) error {
	var firstErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		err := flags.Set(f.Name, value)
		if err != nil {
			firstErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})

	return firstErr
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
