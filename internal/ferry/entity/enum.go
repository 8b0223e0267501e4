package entity

type Provider string

const (
	ProviderUnknown    Provider = "UNKNOWN"
	ProviderPixeldrain Provider = "PIXELDRAIN"
	ProviderMegaFile   Provider = "MEGA_FILE"
	ProviderMegaFolder Provider = "MEGA_FOLDER"
)

type RunStatus string

const (
	RunStatusQueued     RunStatus = "QUEUED"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusDone       RunStatus = "DONE"
)

type TransferStatus string

const (
	TransferStatusUploaded TransferStatus = "UPLOADED"
	TransferStatusFailed   TransferStatus = "FAILED"
)

type Stage string

const (
	StageStarting    Stage = "starting"
	StageDownloading Stage = "downloading"
	StageUploading   Stage = "uploading"
	StageDone        Stage = "done"
	StageError       Stage = "error"
)
