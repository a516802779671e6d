package builder

// Weighting assigns each of the four build passes a share of a single
// overall progress scale, so a caller driving a progress bar across scan,
// build, write, and index work sees motion proportional to how much wall
// time each phase actually tends to take, not to how many files or
// objects it happens to touch.
type Weighting struct {
	Scan  int
	Build int
	Write int
	Index int
}

// DefaultWeighting matches the relative cost observed in practice:
// scanning the source tree is cheap, writing rendered artifacts is
// moderate, parsing/building the object model is the second-largest cost,
// and indexing into the graph store is the largest.
var DefaultWeighting = Weighting{Scan: 1000, Build: 10000, Write: 2000, Index: 15000}

func (w Weighting) total() int { return w.Scan + w.Build + w.Write + w.Index }

// Phase names one of the four weighted stages a Monitor tracks.
type Phase int

const (
	PhaseScan Phase = iota
	PhaseBuild
	PhaseWrite
	PhaseIndex
)

func (p Phase) weight(w Weighting) int {
	switch p {
	case PhaseScan:
		return w.Scan
	case PhaseBuild:
		return w.Build
	case PhaseWrite:
		return w.Write
	case PhaseIndex:
		return w.Index
	default:
		return 0
	}
}

// Monitor tracks weighted progress across a build run and reports it on
// a 0-1 scale regardless of how many discrete units (files scanned,
// modules built, artifacts written, objects indexed) each phase turns out
// to have.
type Monitor struct {
	weighting Weighting
	totals    map[Phase]int
	done      map[Phase]int
	onUpdate  func(fraction float64)
}

// NewMonitor starts a Monitor using w with no phase totals declared;
// callers declare each phase's total unit count with SetTotal as soon as
// it becomes known (e.g. the number of files the scan found, known only
// after the scan phase itself runs). onUpdate, if
// non-nil, is called after every advance with the overall fraction
// complete.
func NewMonitor(w Weighting, onUpdate func(fraction float64)) *Monitor {
	return &Monitor{
		weighting: w,
		totals:    make(map[Phase]int),
		done:      make(map[Phase]int),
		onUpdate:  onUpdate,
	}
}

// SetTotal declares how many units phase p will process in total.
func (m *Monitor) SetTotal(p Phase, total int) {
	m.totals[p] = total
	m.report()
}

// Advance records n more units of phase p completed.
func (m *Monitor) Advance(p Phase, n int) {
	m.done[p] += n
	m.report()
}

// Fraction returns the overall weighted-progress fraction, in [0, 1].
func (m *Monitor) Fraction() float64 {
	total := m.weighting.total()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, p := range []Phase{PhaseScan, PhaseBuild, PhaseWrite, PhaseIndex} {
		weight := p.weight(m.weighting)
		if weight == 0 {
			continue
		}
		phaseTotal := m.totals[p]
		var phaseFraction float64
		if phaseTotal > 0 {
			phaseFraction = float64(m.done[p]) / float64(phaseTotal)
			if phaseFraction > 1 {
				phaseFraction = 1
			}
		}
		sum += phaseFraction * float64(weight)
	}
	return sum / float64(total)
}

func (m *Monitor) report() {
	if m.onUpdate != nil {
		m.onUpdate(m.Fraction())
	}
}
