package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/classindex/internal/config"
	"github.com/Aman-CERP/classindex/internal/output"
)

const configHeader = `classindex configuration

Precedence, lowest first: defaults, user config
(~/.config/classindex/config.yaml), project config (.classindex.yaml in
the scan root), CLASSINDEX_* environment variables, command line flags.

scan.extractor: parser (structural) or pattern (regex, tolerant)
scan.parallel_threads: 0 uses logical cores minus one
index.hash_algorithm: sha256 or xxh3`

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage classindex configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/classindex/config.yaml)
  3. Project config (.classindex.yaml in the scan root)
  4. Environment variables (CLASSINDEX_*)
  5. Command line flags`,
		Example: `  # Create .classindex.yaml in the current directory
  classindex config init

  # Show effective configuration
  classindex config show

  # Print user config file path
  classindex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
		root  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration file",
		Long: `Write the default configuration to .classindex.yaml in --root, or to
the user config file with --user. An existing file is kept unless --force
is given, in which case it is backed up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if !user {
				dir, err := absDir(root)
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.ProjectFileName)
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().StringVar(&root, "root", ".", "Project directory")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	var backup string
	if fileExists(path) {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Status("", "Use --force to overwrite it (a backup is kept)")
			return nil
		}
		var err error
		if backup, err = config.BackupFile(path); err != nil {
			return err
		}
	}

	if err := config.NewConfig().WriteYAML(path, configHeader); err != nil {
		return err
	}

	out.Successf("Created %s", path)
	if backup != "" {
		out.Statusf("", "Previous file saved as %s", backup)
	}
	return nil
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		root       string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging defaults, config files and environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := absDir(root)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(dir)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), cfg)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&root, "root", ".", "Project directory")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
