package main

import (
	"github.com/spf13/cobra"

	"cedx/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// VersionResponseCLI describes the running build
type VersionResponseCLI struct {
	Version       string `json:"version"`
	Info          string `json:"info"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"buildDate"`
	PackageFormat int    `json:"packageFormat"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	return writeResponse(cmd.OutOrStdout(), &VersionResponseCLI{
		Version:       version.Version,
		Info:          version.Info(),
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		PackageFormat: version.PackageFormat,
	})
}
