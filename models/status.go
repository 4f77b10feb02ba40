package models

// PostStatus is the lifecycle state of a reported issue.
type PostStatus string

const (
	PostPending  PostStatus = "pending"
	PostActive   PostStatus = "active"
	PostResolved PostStatus = "resolved"
)

// Valid reports whether s is one of the known post states.
func (s PostStatus) Valid() bool {
	switch s {
	case PostPending, PostActive, PostResolved:
		return true
	}
	return false
}

// WorkerStatus is the availability of a field worker. Values are case-sensitive.
type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "ACTIVE"
	WorkerInactive WorkerStatus = "INACTIVE"
	WorkerOnLeave  WorkerStatus = "ON_LEAVE"
	WorkerBusy     WorkerStatus = "BUSY"
)

// WorkerStatuses lists every accepted worker status.
var WorkerStatuses = []WorkerStatus{WorkerActive, WorkerInactive, WorkerOnLeave, WorkerBusy}

func (s WorkerStatus) Valid() bool {
	for _, known := range WorkerStatuses {
		if s == known {
			return true
		}
	}
	return false
}
