package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/specimap/internal/archive"
	"github.com/agentstation/specimap/internal/cmd/output"
	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/specimen"
)

// NewScoreCommand creates the score command.
func (a *App) NewScoreCommand() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:     "score <file>",
		GroupID: "inspect",
		Short:   "Score the completeness of archive records",
		Long: `Score reads an archive file and prints the MIDS level (0-3) of each
record as read, without enrichment or reconciliation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithLogger(cmd.Context(), a.logger)
			reader := &archive.Reader{Strict: strict}

			var scores []output.Score
			err := reader.Each(ctx, args[0], func(line int, r *specimen.Record) error {
				key := ""
				if k, err := r.NaturalKey(); err == nil {
					key = k.String()
				}
				source := fmt.Sprintf("%s:%d", args[0], line)
				scores = append(scores, output.NewScore(source, key, completeness.Score(r)))
				return nil
			})
			if err != nil {
				return err
			}

			format := a.format()
			if format.IsTable() {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.ScoresToTableData(scores))
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), scores)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first malformed row")
	return cmd
}
