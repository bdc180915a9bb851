package main

import (
	"github.com/spf13/cobra"
)

// tokenAudience is the audience of operator tokens accepted by the API.
const tokenAudience = "zkregistry-api"

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zkregistry",
		Short:         "Merkle-anchored compliance registry",
		Long:          `Verifies legal entities against their registries, signs and proves the results, and aggregates them into a Merkle registry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newVerifyCmd(),
		newDiscloseCmd(),
		newKeygenCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("zkregistry " + version)
		},
	}
}
