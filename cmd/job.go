package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/craftline/outreach-cli/internal/jobs"
	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/internal/store"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Run and inspect stage jobs",
}

var jobRunCmd = &cobra.Command{
	Use:   "run <stage>",
	Short: "Run one stage job over all eligible leads",
	Long: `Runs a stage job: scrape, verify, draft, follow_up, or send. The job
claims every currently eligible lead (bounded by config), processes items in
parallel, and records per-item outcomes on the job row.

Use --id to restrict the run to specific leads.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobRun,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one job's result",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobStatus,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent jobs",
	RunE:  runJobsList,
}

func init() {
	jobRunCmd.Flags().StringSlice("id", nil, "restrict to specific lead ids (repeatable)")

	jf := jobsCmd.Flags()
	jf.String("type", "", "filter by job type")
	jf.String("status", "", "filter by job status")
	jf.Int("limit", 20, "maximum rows")

	jobCmd.AddCommand(jobRunCmd, jobStatusCmd)
	rootCmd.AddCommand(jobCmd, jobsCmd)
}

var runnableStages = map[string]model.JobType{
	"scrape":    model.JobScrape,
	"verify":    model.JobVerify,
	"draft":     model.JobDraft,
	"follow_up": model.JobFollowUp,
	"send":      model.JobSend,
}

func runJobRun(cmd *cobra.Command, args []string) error {
	jobType, ok := runnableStages[args[0]]
	if !ok {
		return eris.Errorf("unknown stage: %s (use discover for discovery jobs)", args[0])
	}

	env, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	ids, _ := cmd.Flags().GetStringSlice("id")
	receipt, err := env.Dispatcher.Submit(cmd.Context(), jobs.SubmitRequest{
		Type:    jobType,
		LeadIDs: ids,
		Manual:  true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("job %s: claimed %d leads\n", receipt.JobID, receipt.AcceptedCount)
	return printJob(cmd, env, receipt.JobID)
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	env, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	return printJob(cmd, env, args[0])
}

func printJob(cmd *cobra.Command, env *appEnv, id string) error {
	job, err := env.Store.GetJob(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("type: %s  status: %s\n", job.Type, job.Status)
	if job.ErrorMessage != "" {
		fmt.Printf("error: %s\n", job.ErrorMessage)
	}
	if job.Result != nil {
		out, err := json.MarshalIndent(job.Result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal job result")
		}
		fmt.Println(string(out))
	}
	return nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	env, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	f := cmd.Flags()
	jobType, _ := f.GetString("type")
	status, _ := f.GetString("status")
	limit, _ := f.GetInt("limit")

	list, err := env.Store.ListJobs(cmd.Context(), store.JobFilter{
		Type:   model.JobType(jobType),
		Status: model.JobStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCLAIMED\tOK\tFAILED\tSKIPPED\tCREATED")
	for _, j := range list {
		claimed, ok, failed, skipped := 0, 0, 0, 0
		if j.Result != nil {
			claimed, ok, failed, skipped = j.Result.Claimed, j.Result.Succeeded, j.Result.Failed, j.Result.Skipped
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			j.ID, j.Type, j.Status, claimed, ok, failed, skipped,
			j.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
