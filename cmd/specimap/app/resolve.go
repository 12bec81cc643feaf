package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/specimap/internal/cmd/output"
	"github.com/agentstation/specimap/internal/sources"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/region"
)

// NewResolveRegionCommand creates the resolve-region command.
func (a *App) NewResolveRegionCommand() *cobra.Command {
	var q region.Query
	cmd := &cobra.Command{
		Use:     "resolve-region",
		GroupID: "inspect",
		Short:   "Resolve the region of an institution",
		Long: `Resolve-region runs the region resolution chain for one institution:
registry lookup by identifier, then by institution code (disambiguated by
common region and collection code), then host geolocation of the fallback
URLs.`,
		Example: `  specimap resolve-region --institution-code MNHN
  specimap resolve-region --institution-code K --collection-code K
  specimap resolve-region --url https://www.nhm.ac.uk/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if q.InstitutionID == "" && q.InstitutionCode == "" && len(q.FallbackURLs) == 0 {
				return errors.NewValidationError("institution", "", "one of --institution-id, --institution-code or --url is required")
			}
			engine := a.config.Engine
			set := sources.New(engine.Sources, engine.HTTPTimeout)

			ctx := logging.WithLogger(cmd.Context(), a.logger)
			res, err := set.Regions.Resolve(ctx, q)
			if err != nil {
				return err
			}
			return output.NewFormatter(a.format()).Format(cmd.OutOrStdout(), output.NewResolution(q, res))
		},
	}

	cmd.Flags().StringVar(&q.InstitutionID, "institution-id", "", "registry identifier or URL of the institution")
	cmd.Flags().StringVar(&q.InstitutionCode, "institution-code", "", "institution code")
	cmd.Flags().StringVar(&q.CollectionCode, "collection-code", "", "collection code used to disambiguate")
	cmd.Flags().StringSliceVar(&q.FallbackURLs, "url", nil, "fallback URL whose host is geolocated (repeatable)")
	return cmd
}
