// internal/domain/models.go
package domain

import "time"

// MultipartThreshold is the size above which an upload is chunked into a
// multipart session instead of a single request.
const MultipartThreshold int64 = 16 << 20

// ObjectEntry is one listed object, local or remote. Keys are relative to
// the listing scope, use forward slashes, and are unique within a listing.
type ObjectEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	LastModified time.Time `json:"last_modified"`
	Origin       Origin    `json:"origin"`
	ContentType  string    `json:"content_type,omitempty"`
}

// HasUsableHash reports whether Fingerprint is a plain content MD5.
// Multipart ETags (they contain a dash) do not hash the whole payload and
// cannot be compared across stores.
func (e ObjectEntry) HasUsableHash() bool {
	if e.Fingerprint == "" {
		return false
	}
	for i := 0; i < len(e.Fingerprint); i++ {
		if e.Fingerprint[i] == '-' {
			return false
		}
	}
	return true
}

// Task is one planned action against the destination.
type Task struct {
	Key       string   `json:"key"`
	SourceRef string   `json:"source_ref,omitempty"`
	DestRef   string   `json:"dest_ref"`
	Size      int64    `json:"size"`
	Kind      TaskKind `json:"kind"`
}

// SyncPlan is the outcome of one diff: what to create, update and delete,
// plus how many entries needed nothing. Lists are key-ordered.
type SyncPlan struct {
	Creates []Task `json:"creates"`
	Updates []Task `json:"updates"`
	Deletes []Task `json:"deletes"`
	Skipped int    `json:"skipped"`
}

// TaskCount returns the number of tasks the plan would execute.
func (p *SyncPlan) TaskCount() int {
	return len(p.Creates) + len(p.Updates) + len(p.Deletes)
}

// Empty reports whether the plan has no work at all.
func (p *SyncPlan) Empty() bool {
	return p.TaskCount() == 0
}

// Tasks returns creates, updates and deletes as one slice, in that order.
func (p *SyncPlan) Tasks() []Task {
	out := make([]Task, 0, p.TaskCount())
	out = append(out, p.Creates...)
	out = append(out, p.Updates...)
	out = append(out, p.Deletes...)
	return out
}

// PartRange addresses one part of a chunked upload within the source
// payload. Index is 1-based to match the multipart wire protocol.
type PartRange struct {
	Index  int
	Offset int64
	Length int64
}

// PartPlan describes how a payload above MultipartThreshold is split.
// Ranges cover the payload exactly; the last part holds the remainder.
type PartPlan struct {
	PartSize  int64
	PartCount int
	Ranges    []PartRange
}

// NewPartPlan splits size bytes into parts of partSize. size must be
// positive; partSize falls back to 8 MiB when not.
func NewPartPlan(size, partSize int64) PartPlan {
	if partSize <= 0 {
		partSize = 8 << 20
	}
	count := int((size + partSize - 1) / partSize)
	plan := PartPlan{
		PartSize:  partSize,
		PartCount: count,
		Ranges:    make([]PartRange, 0, count),
	}
	for i := 0; i < count; i++ {
		offset := int64(i) * partSize
		length := partSize
		if offset+length > size {
			length = size - offset
		}
		plan.Ranges = append(plan.Ranges, PartRange{
			Index:  i + 1,
			Offset: offset,
			Length: length,
		})
	}
	return plan
}

// TaskResult is one executed task plus its outcome.
type TaskResult struct {
	Task     Task          `json:"task"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the task ended in an error.
func (r TaskResult) Failed() bool { return r.Err != nil }

// CycleSummary aggregates one full list-diff-execute cycle for logs and
// the watch status endpoint.
type CycleSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Creates   int           `json:"creates"`
	Updates   int           `json:"updates"`
	Deletes   int           `json:"deletes"`
	Skipped   int           `json:"skipped"`
	Executed  bool          `json:"executed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Bytes     int64         `json:"bytes"`
}
