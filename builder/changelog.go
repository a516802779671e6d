package builder

import (
	"fmt"

	"github.com/proofscape/pfscbuild/registry/api/errcode"

	"context"
)

// ChangeLogEntry records one declared change between two major versions
// of a repo: the deducs/nodes moved or retargeted, used both to populate
// the index writer's MOVE/RETARGETS operations and to satisfy the
// requirement that any major-version bump carry a change log explaining
// it.
type ChangeLogEntry struct {
	FromMajor, ToMajor int
	Moves              []MoveDecl
	Retargets          []RetargetDecl
}

type MoveDecl struct{ OldPath, NewPath string }
type RetargetDecl struct {
	AffectedModpath      string
	OldTarget, NewTarget string
}

// ValidateChangeLog checks a release build's major-version increment
// against the repo's declared change log. Every step from prevMajor to
// newMajor must be covered by an entry with FromMajor == step and
// ToMajor == step+1; the first uncovered step (including any step at all
// when no change log is declared) rejects the build with
// ErrorCodeMissingRepoChangeLog. A release that does not increment the
// major version is not checked.
func ValidateChangeLog(ctx context.Context, prevMajor, newMajor int, entries []ChangeLogEntry) error {
	if newMajor <= prevMajor {
		return nil
	}
	for major := prevMajor; major < newMajor; major++ {
		covered := false
		for _, e := range entries {
			if e.FromMajor == major && e.ToMajor == major+1 {
				covered = true
				break
			}
		}
		if !covered {
			return errcode.ErrorCodeMissingRepoChangeLog.WithArgs(fmt.Sprintf("major %d -> %d", major, major+1))
		}
	}
	return nil
}
