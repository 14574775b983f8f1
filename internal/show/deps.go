package show

// UnmetDependencies returns the IDs from cue.Dependencies that are not in
// executed state, in the cue's declared dependency order.
//
// Pure function over a snapshot of the show's cues: no side effects, no I/O.
// A skipped dependency is treated as NOT satisfying the requirement; the
// dependent cue must itself be skipped or have the edge cleared by an
// operator.
//
// A dependency ID missing from the snapshot is reported as unmet rather than
// ignored. Creation-time validation rejects unknown IDs, so this only occurs
// if the snapshot is stale.
func UnmetDependencies(cue *Cue, cues map[string]*Cue) []string {
	if len(cue.Dependencies) == 0 {
		return nil
	}

	var unmet []string
	for _, depID := range cue.Dependencies {
		dep, ok := cues[depID]
		if !ok || dep.Status != CueExecuted {
			unmet = append(unmet, depID)
		}
	}
	return unmet
}
