package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/craftline/outreach-cli/internal/jobs"
	"github.com/craftline/outreach-cli/internal/model"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a discovery job against one source",
	Long: `Searches a discovery source for candidate leads and resolves each
candidate through dedup: new natural keys become leads, known keys are
skipped, and keys already contacted become follow-up touches.

Examples:
  outreach discover --source website --category "gift guides" --location usa
  outreach discover --source social --platform instagram --keyword "gift guide"`,
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.String("source", "website", "source type: website or social")
	f.String("platform", "", "social platform (required with --source social)")
	f.StringSlice("keyword", nil, "search keyword (repeatable)")
	f.StringSlice("category", nil, "search category (repeatable)")
	f.StringSlice("location", nil, "search location (repeatable)")
	f.Int("max-results", 0, "maximum candidates (default from config)")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	env, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	f := cmd.Flags()
	source, _ := f.GetString("source")
	platform, _ := f.GetString("platform")
	keywords, _ := f.GetStringSlice("keyword")
	categories, _ := f.GetStringSlice("category")
	locations, _ := f.GetStringSlice("location")
	maxResults, _ := f.GetInt("max-results")

	sourceType := model.SourceType(source)
	if sourceType != model.SourceWebsite && sourceType != model.SourceSocial {
		return eris.Errorf("unknown source type: %s", source)
	}
	if maxResults <= 0 {
		maxResults = cfg.Discovery.MaxResults
	}

	receipt, err := env.Dispatcher.Submit(cmd.Context(), jobs.SubmitRequest{
		Type:   model.JobDiscover,
		Manual: true,
		Discover: &model.DiscoveryRequest{
			SourceType: sourceType,
			Platform:   platform,
			Filters: model.DiscoveryFilters{
				Keywords:   keywords,
				Categories: categories,
				Locations:  locations,
				MaxResults: maxResults,
			},
		},
	})
	if err != nil {
		return err
	}

	job, err := env.Store.GetJob(cmd.Context(), receipt.JobID)
	if err != nil {
		return err
	}

	fmt.Printf("job %s: %d candidates found\n", receipt.JobID, receipt.AcceptedCount)
	if job.Result != nil {
		fmt.Printf("  saved: %d  skipped: %d  failed: %d\n",
			job.Result.Succeeded, job.Result.Skipped, job.Result.Failed)
	}
	return nil
}
