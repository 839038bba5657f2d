package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/atelier/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Inspect workspace profiles",
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show [profile-file]",
	Short: "Validate a profile and show the context sent with prompts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := workspace.LoadProfile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		result := workspace.Validate(*p)
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !result.Valid {
			os.Exit(1)
		}

		fmt.Printf("%s (%s)\n", p.Name, p.Industry)
		fmt.Printf("context: %s\n", workspace.ContextJSON(*p))
	},
}

func init() {
	RootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
}
