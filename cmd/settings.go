package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change runtime settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.Store.GetSettings(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("automation: %v (updated %s)\n",
			s.AutomationEnabled, s.UpdatedAt.Format("2006-01-02 15:04"))
		return nil
	},
}

var automationCmd = &cobra.Command{
	Use:   "automation on|off",
	Short: "Toggle the automation master switch",
	Long: `Controls whether automated (non-manual) job submissions are
accepted. Operator-triggered runs always bypass this switch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return eris.Errorf("expected on or off, got %q", args[0])
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.SetAutomation(cmd.Context(), enabled); err != nil {
			return err
		}
		fmt.Printf("automation %s\n", args[0])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(automationCmd)
	rootCmd.AddCommand(settingsCmd)
}
