package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pipelined/esdr/config"
)

var (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	// .env is optional
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errorExitCode)
	}
	os.Exit(successExitCode)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "esdr",
		Short:         "esdr is a software defined FM receiver",
		Long:          "esdr compiles receiver flowgraphs and controls them while they run.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to yaml config, "+config.EnvConfig+" is used if empty")
	root.AddCommand(newKindsCommand(), newRunCommand())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}
