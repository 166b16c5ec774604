package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mcpask",
		Long:  `All software has versions. This is mcpask's.`,
		Annotations: map[string]string{
			skipSettingsAnnotation: "true",
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpask version %s\n", rootCmd.Version)
		},
	}
}
