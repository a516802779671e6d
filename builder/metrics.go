package builder

import (
	"time"

	"github.com/docker/go-metrics"
)

// NamespacePrefix is the namespace under which every builder metric is
// registered with the default Prometheus registry.
const NamespacePrefix = "pfscbuild"

// BuildNamespace is the prometheus namespace of scan/build/write/index
// phase metrics, registered the same way the registry's storage and
// middleware concerns each get their own namespace.
var BuildNamespace = metrics.NewNamespace(NamespacePrefix, "build", nil)

var (
	buildRuns     = BuildNamespace.NewLabeledCounter("runs", "number of build runs, by outcome", "outcome")
	buildDuration = BuildNamespace.NewLabeledTimer("duration_seconds", "wall time of a build phase", "phase")
)

func incRun(outcome string)          { buildRuns.WithValues(outcome).Inc(1) }
func recordDuration(phase string, since time.Time) {
	buildDuration.WithValues(phase).UpdateSince(since)
}

func init() {
	metrics.Register(BuildNamespace)
}
