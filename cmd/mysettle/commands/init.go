package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mysettle/mysettle/internal/scaffold"
)

func newInitCommand() *cobra.Command {
	var (
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter mysettle.yml",
		Long: `Write a commented mysettle.yml with the default settings and create the
report output directory.

Examples:
  mysettle init
  mysettle init --dir /etc/mysettle --force`,
		Args: cobra.NoArgs,
		// The existing config may be the broken one being replaced
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output(cmd)

			if force {
				p.Warning("Replacing any existing %s...\n", scaffold.ConfigFile)
			}

			created, err := scaffold.Initialize(dir, force)
			if err != nil {
				return p.Error(
					"initialization failed",
					err.Error(),
					nil,
				)
			}

			p.Success("Initialized mySettle in %s\n", dir)
			p.Info("\nCreated:\n")
			for _, path := range created {
				p.Info("  ✓ %s\n", filepath.Join(dir, path))
			}
			p.Info("\nNext steps:\n")
			p.Info("  1. Point redis.url at your Redis server\n")
			p.Info("  2. Set the Google API keys to leave demo mode\n")
			p.Info("  3. Run 'mysettle serve --config %s' to start the API\n", filepath.Join(dir, scaffold.ConfigFile))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing mysettle.yml")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")
	return cmd
}
