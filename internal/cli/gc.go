package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var gcRepoPath string

// GCCmd runs delete_full_wip_build: the recovery procedure that discards
// a repo's entire WIP build (cache, written artifacts, and indexed
// objects) so the next build starts from a clean slate.
var GCCmd = &cobra.Command{
	Use:   "gc",
	Short: "`gc` deletes a repo's full WIP build",
	Long:  "`gc` discards a repo's cached, written, and indexed WIP state so it can be rebuilt from scratch.",
	Run: func(cmd *cobra.Command, args []string) {
		if gcRepoPath == "" {
			fmt.Fprintln(os.Stderr, "--repo is required")
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

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

		if err := pipeline.DeleteFullWIPBuild(context.Background(), gcRepoPath); err != nil {
			fmt.Fprintf(os.Stderr, "gc failed: %v\n", err)
			os.Exit(1)
		}
	},
}
