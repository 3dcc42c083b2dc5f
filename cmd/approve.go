package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <lead-id>...",
	Short: "Approve discovered leads for scraping",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Gate.Approve(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("approved %d of %d\n", n, len(args))
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <lead-id>...",
	Short: "Reject discovered leads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Gate.Reject(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("rejected %d of %d\n", n, len(args))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <lead-id>...",
	Short: "Delete leads permanently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Gate.Delete(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d of %d\n", n, len(args))
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <lead-id>...",
	Short: "Confirm verified leads for drafting",
	Long:  "Marks verified leads as reviewed. Drafting only picks up leads whose review has been confirmed.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Gate.ConfirmReview(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("confirmed %d of %d\n", n, len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd, rejectCmd, deleteCmd, reviewCmd)
}
