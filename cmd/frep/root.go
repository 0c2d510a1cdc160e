package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/frep/pkg/config"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "frep",
		Short:         "Evaluate and mesh implicit surface scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newEvalCmd(c),
		newSimplifyCmd(c),
		newMeshCmd(c),
		newCheckCmd(c),
	)
	return root
}

func (c *cli) setup(logOut io.Writer) error {
	c.cfg = config.Default()
	if c.configPath != "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if c.logLevel != "" {
		c.cfg.LogLevel = c.logLevel
	}
	level, err := c.cfg.Level()
	if err != nil {
		return err
	}
	c.log = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	return nil
}

func (c *cli) app() *App {
	return NewApp(c.cfg, c.log)
}

// readSource reads a script from path, or from in when path is "-".
func readSource(path string, in io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(b), nil
}
