package domain

// Origin says which side of a listing an entry came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// TaskKind classifies a planned action against the destination.
type TaskKind string

const (
	TaskCreate TaskKind = "create"
	TaskUpdate TaskKind = "update"
	TaskDelete TaskKind = "delete"
)

// WatchState is the watch loop's coarse state.
type WatchState int

const (
	WatchIdle WatchState = iota
	WatchRunning
)

var watchStateLabels = map[WatchState]string{
	WatchIdle:    "idle",
	WatchRunning: "running",
}

// String returns a human-readable label for a watch state.
func (s WatchState) String() string {
	if label, ok := watchStateLabels[s]; ok {
		return label
	}

	return "unknown"
}
