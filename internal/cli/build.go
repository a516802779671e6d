package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/proofscape/pfscbuild/builder"
	"github.com/proofscape/pfscbuild/index"
	"github.com/proofscape/pfscbuild/internal/dcontext"
	"github.com/proofscape/pfscbuild/libpath"
)

// BuildCmd builds one repo's WIP version: the iterative, re-runnable
// build an author triggers on every save, never subject to change-log
// validation since WIP carries no committed major to validate against.
var BuildCmd = &cobra.Command{
	Use:   "build <repo-root> <repo-libpath>",
	Short: "`build` runs a WIP build of one repo",
	Long:  "`build` scans, builds, writes, and indexes a repo's WIP version.",
	Args:  cobra.ExactArgs(2),
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

		wipTag := cfg.Build.WIPTag
		if wipTag == "" {
			wipTag = libpath.WIPTag
		}

		ctx := context.Background()
		result, err := pipeline.Run(ctx, builder.Config{
			RepoRoot:    args[0],
			RepoLibpath: args[1],
			Version:     wipTag,
			Major:       index.WIPMajor,
		}, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}

		dcontext.GetLogger(ctx).Infof("built %d modules (%d widgets autofilled) for %s",
			result.ModulesBuilt, result.WidgetsRenamed, args[1])
	},
}
