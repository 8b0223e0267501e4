package entity

type LinkEntry struct {
	Raw      string
	Provider Provider
	Name     string // optional filename override, single-file links only
}

// FetchItem is one local file produced by a downloader. Folder links yield one
// item per member; a member that could not be fetched carries Err and no Path.
type FetchItem struct {
	Name string
	Path string
	Size int64
	Err  error
}
