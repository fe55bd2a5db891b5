package sync

import (
	"strings"
	"time"

	"github.com/agnesscodex/s4/internal/domain"
)

// modTimeTolerance absorbs stores that truncate modification times to
// whole seconds when the comparison has to fall back to timestamps.
const modTimeTolerance = 2 * time.Second

// Planner merges two key-sorted listings into a transfer plan with a
// single two-pointer pass. The plan is a pure function of its inputs:
// same listings, filters and flags always produce the same plan.
type Planner struct {
	remove bool

	srcRef func(string) string
	dstRef func(string) string
}

// NewPlanner builds a planner. remove controls whether destination-only
// keys become deletes or are merely counted as skipped. The ref funcs
// render task references for reporting; nil leaves the key as-is.
func NewPlanner(remove bool, srcRef, dstRef func(string) string) *Planner {
	if srcRef == nil {
		srcRef = func(key string) string { return key }
	}
	if dstRef == nil {
		dstRef = func(key string) string { return key }
	}
	return &Planner{remove: remove, srcRef: srcRef, dstRef: dstRef}
}

// Plan walks both listings in lockstep. Source-only keys become creates,
// destination-only keys deletes (or skips without remove), and shared
// keys become updates when their fingerprints differ.
func (p *Planner) Plan(source, dest []domain.ObjectEntry) *domain.SyncPlan {
	plan := &domain.SyncPlan{
		Creates: []domain.Task{},
		Updates: []domain.Task{},
		Deletes: []domain.Task{},
	}

	i, j := 0, 0
	for i < len(source) && j < len(dest) {
		switch {
		case source[i].Key < dest[j].Key:
			plan.Creates = append(plan.Creates, p.transferTask(source[i], domain.TaskCreate))
			i++
		case source[i].Key > dest[j].Key:
			p.planExtraneous(plan, dest[j])
			j++
		default:
			if changed(source[i], dest[j]) {
				plan.Updates = append(plan.Updates, p.transferTask(source[i], domain.TaskUpdate))
			} else {
				plan.Skipped++
			}
			i++
			j++
		}
	}
	for ; i < len(source); i++ {
		plan.Creates = append(plan.Creates, p.transferTask(source[i], domain.TaskCreate))
	}
	for ; j < len(dest); j++ {
		p.planExtraneous(plan, dest[j])
	}

	return plan
}

func (p *Planner) transferTask(entry domain.ObjectEntry, kind domain.TaskKind) domain.Task {
	return domain.Task{
		Key:       entry.Key,
		SourceRef: p.srcRef(entry.Key),
		DestRef:   p.dstRef(entry.Key),
		Size:      entry.Size,
		Kind:      kind,
	}
}

func (p *Planner) planExtraneous(plan *domain.SyncPlan, entry domain.ObjectEntry) {
	if !p.remove {
		plan.Skipped++
		return
	}
	plan.Deletes = append(plan.Deletes, domain.Task{
		Key:     entry.Key,
		DestRef: p.dstRef(entry.Key),
		Size:    entry.Size,
		Kind:    domain.TaskDelete,
	})
}

// changed reports whether the source entry differs from its destination
// counterpart: size first, then content hash when both sides expose a
// usable one, otherwise a source modification time newer than the
// destination's beyond the tolerance.
func changed(src, dst domain.ObjectEntry) bool {
	if src.Size != dst.Size {
		return true
	}
	if src.HasUsableHash() && dst.HasUsableHash() {
		return !strings.EqualFold(src.Fingerprint, dst.Fingerprint)
	}
	return src.LastModified.After(dst.LastModified.Add(modTimeTolerance))
}
