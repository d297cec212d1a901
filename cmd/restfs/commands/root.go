// Package commands holds the restfs command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/brettbedarf/restfs/adapters"
	"github.com/brettbedarf/restfs/config"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/brettbedarf/restfs/provider"
	"github.com/spf13/cobra"
)

// PasswordEnv supplies the remote password without putting it on the command line
const PasswordEnv = "RESTFS_PASSWORD"

type rootOptions struct {
	configPath string
	verbose    int
	host       string
	user       string
	insecure   bool
}

// app is the state shared by every subcommand once the root pre-run has
// loaded config and built the provider.
type app struct {
	opts     rootOptions
	cfg      *config.Config
	provider *provider.Provider
}

// Execute runs the command tree against os.Args
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "restfs",
		Short:        "Browse and edit remote management objects as files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.provider != nil {
				a.provider.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (.yaml, .yml or .json)")
	flags.IntVarP(&a.opts.verbose, "verbose", "v", config.InfoVerbose,
		"log verbosity between 1 (error) and 5 (trace)")
	flags.StringVar(&a.opts.host, "host", "", "remote host, optionally with scheme and port")
	flags.StringVar(&a.opts.user, "user", "", "remote user (password from $"+PasswordEnv+")")
	flags.BoolVar(&a.opts.insecure, "insecure", false, "skip TLS certificate verification")

	cmd.AddCommand(
		newMountCmd(a),
		newLsCmd(a),
		newCatCmd(a),
		newPushCmd(a),
		newTreeCmd(a),
	)
	return cmd
}

// init merges config file, environment and flags, then wires the provider
func (a *app) init(cmd *cobra.Command) error {
	override := &config.ConfigOverride{}
	if a.opts.configPath != "" {
		o, err := config.LoadConfigOverrideFile(a.opts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		override = o
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		override.LogLvl = &a.opts.verbose
	}
	if flags.Changed("host") {
		override.Host = &a.opts.host
	}
	if flags.Changed("user") {
		override.Username = &a.opts.user
	}
	if flags.Changed("insecure") {
		strict := !a.opts.insecure
		override.StrictTLS = &strict
	}
	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		override.Password = &pw
	}

	a.cfg = config.NewConfig(override)
	util.InitializeLoggerTo(cmd.ErrOrStderr(), a.cfg.LogLvl)

	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry, a.cfg)
	clients, err := registry.GetProvider(a.cfg.Remote.Type)
	if err != nil {
		return err
	}

	a.provider = provider.New(a.cfg, clients)
	return nil
}
