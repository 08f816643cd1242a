package reconcile

import (
	"github.com/flarebyte/seshat-tally/internal/manifest"
	"github.com/flarebyte/seshat-tally/internal/registry"
)

// CandidatePatch resolves the next patch number from three already-resolved
// signals: the unit's current version, the shared counter, and the registry
// record. Pure, so the floor logic is testable without any I/O.
//
// The local floor is max(counter, patch+1): the candidate must exceed the
// shared counter (uniqueness across units and runs) and the unit's own
// previous patch (monotonicity even if the counter was reseeded). The
// registry floor applies only when the registry reports a published version
// on the same major.minor track; differing major/minor is an intentional
// operator release and is not comparable on patch alone.
func CandidatePatch(local manifest.Version, counter int, reg registry.Record) (patch int, raisedByRegistry bool) {
	candidate := counter
	if local.Patch+1 > candidate {
		candidate = local.Patch + 1
	}
	if reg.Outcome == registry.Published && reg.Version.SameTrack(local) && candidate <= reg.Version.Patch {
		return reg.Version.Patch + 1, true
	}
	return candidate, false
}
