package cli

import (
	"github.com/spf13/cobra"

	"github.com/proofscape/pfscbuild/version"
)

// VersionCmd prints the running binary's version, matching the root
// command's own `-v/--version` shortcut for scripts that prefer an
// explicit subcommand.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "`version` shows the version and exits",
	Run: func(cmd *cobra.Command, args []string) {
		version.PrintVersion()
	},
}
