package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/proofscape/pfscbuild/builder"
	"github.com/proofscape/pfscbuild/internal/dcontext"
)

var (
	releaseMajor     int
	releasePrevMajor int
)

// ReleaseCmd cuts one repo's numbered release build: the one-shot,
// immutable commit that a change-log-validated major-version increment
// produces, never rebuilt once written.
var ReleaseCmd = &cobra.Command{
	Use:   "release <repo-root> <repo-libpath> <version>",
	Short: "`release` cuts a numbered release build of one repo",
	Long:  "`release` scans, builds, writes, and indexes a repo's numbered release version.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfiguration()
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

		pipeline, err := newPipeline(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to construct build pipeline: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		result, err := pipeline.Run(ctx, builder.Config{
			RepoRoot:    args[0],
			RepoLibpath: args[1],
			Version:     args[2],
			Major:       releaseMajor,
			PrevMajor:   releasePrevMajor,
		}, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "release build failed: %v\n", err)
			os.Exit(1)
		}

		dcontext.GetLogger(ctx).Infof("released %s@%s: %d modules built",
			args[1], args[2], result.ModulesBuilt)
	},
}
