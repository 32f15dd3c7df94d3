// Command hdmoonshine drives the moonshine render delegate from YAML scene
// files.
package main

import (
	"fmt"
	"os"

	"github.com/gekko3d/hdmoonshine"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logPath    string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "hdmoonshine",
	Short:         "Render YAML scenes through the moonshine render delegate",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "append delegate logs to this file instead of stdout/stderr")
	rootCmd.AddCommand(renderCmd, inspectCmd)
}

func loadConfig() (hdmoonshine.Config, error) {
	cfg := hdmoonshine.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = hdmoonshine.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hdmoonshine: %v\n", err)
		os.Exit(1)
	}
}
