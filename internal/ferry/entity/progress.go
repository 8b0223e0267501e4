package entity

// ProgressEvent is a single progress observation from a downloader or the
// Drive uploader. Total is 0 when the remote side did not report a size.
type ProgressEvent struct {
	EventID    int64
	RunID      string
	Source     string
	Stage      Stage
	Filename   string
	Downloaded int64
	Total      int64
	SpeedBPS   float64
	ETASec     float64
	ItemIdx    int
	ItemCount  int
	Message    string
}

// Fraction returns completion in [0, 1], or 0 when the total is unknown.
func (e ProgressEvent) Fraction() float64 {
	if e.Total <= 0 {
		return 0
	}

	f := float64(e.Downloaded) / float64(e.Total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ProgressFunc receives progress observations while a transfer is running.
type ProgressFunc func(event ProgressEvent)
