// Package cli implements the pfscbuild command-line interface: the
// build/release/gc/version subcommands a build server or an author's
// local checkout invokes, wired the way the teacher's registry command
// wires its serve/garbage-collect subcommands onto one cobra root.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/proofscape/pfscbuild/version"
)

var showVersion bool

func init() {
	RootCmd.AddCommand(BuildCmd)
	RootCmd.AddCommand(ReleaseCmd)
	RootCmd.AddCommand(GCCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")

	BuildCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to pfscbuild.yml (falls back to PFSCBUILD_CONFIGURATION_PATH)")
	ReleaseCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to pfscbuild.yml (falls back to PFSCBUILD_CONFIGURATION_PATH)")
	GCCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to pfscbuild.yml (falls back to PFSCBUILD_CONFIGURATION_PATH)")
	ReleaseCmd.Flags().IntVar(&releaseMajor, "major", 0, "the major version this release build commits under")
	ReleaseCmd.Flags().IntVar(&releasePrevMajor, "prev-major", 0, "the most recently committed major, for change-log validation")
	GCCmd.Flags().StringVar(&gcRepoPath, "repo", "", "repopath whose WIP build should be fully deleted")
}

// RootCmd is the main command for the 'pfscbuild' binary.
var RootCmd = &cobra.Command{
	Use:   "pfscbuild",
	Short: "`pfscbuild`",
	Long:  "`pfscbuild` builds, writes, and indexes Proofscape modules",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}

// Execute runs RootCmd, exiting the process with a non-zero status on
// error the way every other cobra-based entry point in the pack does.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
