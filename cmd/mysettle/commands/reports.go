package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mysettle/mysettle/internal/documents"
)

func newReportsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Work with the PDRM report documents",
	}
	cmd.AddCommand(newReportsGenerateCommand(a))
	return cmd
}

func newReportsGenerateCommand(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "generate <session-id>",
		Short: "Write the Polis Repot, Rajah Kasar and Keputusan PDFs",
		Long: `Render the three report documents of a case from its stored police
details and write them to a directory.

Examples:
  mysettle reports generate 3f2b8c1e
  mysettle reports generate 3f2b8c1e --out ./case-files`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output(cmd)
			ctx := cmd.Context()

			client, err := a.connect(ctx, p)
			if err != nil {
				return err
			}
			defer client.Close()

			session, err := lookupSession(ctx, p, client, args[0])
			if err != nil {
				return err
			}

			dir := outputDir
			if dir == "" {
				dir = a.cfg.Reports.OutputDir
			}

			p.Step("Rendering reports for session %s\n", session.ID)
			names, err := a.service(client, dir).GenerateDocuments(ctx, session.ID)
			if err != nil {
				return p.ErrorWithContext(
					"report generation failed",
					err.Error(),
					map[string]string{"Session": session.ID, "Output": dir},
					[]string{"Police details are created once both drivers submit; check the case with:\n  mysettle dashboard --status all -q " + session.ID},
				)
			}

			for _, kind := range documents.AllKinds {
				p.Success("%s\n", filepath.Join(dir, names[kind]))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (default reports.output_dir)")
	return cmd
}
