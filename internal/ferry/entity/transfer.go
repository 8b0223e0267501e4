package entity

import "time"

type TransferResult struct {
	Name         string
	SourceLink   string
	FolderLink   string
	ResourceLink string
	Status       TransferStatus
	ErrKind      string // stable error code string, set when Status is FAILED
	Err          string
}

type SessionFolder struct {
	ID   string
	Name string
	Link string
}

type RunMeta struct {
	ID         string
	Status     RunStatus
	Folder     string
	DriveName  string
	AutoDelete time.Duration // 0 keeps the session folder forever
	Err        string
	StartedAt  int64
	EndedAt    int64

	// Stats help observability without storing everything
	TotalLinks int64
	Succeeded  int64
	Failed     int64

	FolderID   string
	FolderLink string
}
