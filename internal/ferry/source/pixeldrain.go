package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
)

const (
	defaultPixeldrainBaseURL = "https://pixeldrain.com"
	pixeldrainChunkSize      = 64 * 1024
)

var pixeldrainLinkRE = regexp.MustCompile(`pixeldrain\.com/(?:u|l)/([A-Za-z0-9]+)`)

// MatchPixeldrain reports whether rawURL looks like a PixelDrain file link.
func MatchPixeldrain(rawURL string) bool {
	return pixeldrainLinkRE.MatchString(rawURL)
}

// extractPixeldrainID pulls the file ID out of a /u/ or /l/ link. Query
// decoration after the ID does not change the result.
func extractPixeldrainID(rawURL string) (string, error) {
	m := pixeldrainLinkRE.FindStringSubmatch(rawURL)
	if m == nil {
		return "", pkgerror.NewInvalidLink(fmt.Errorf("not a pixeldrain url: %s", rawURL))
	}

	return m[1], nil
}

// PixelDrain downloads single files through the public PixelDrain API.
type PixelDrain struct {
	baseURL string
	client  *http.Client
}

func NewPixelDrain(baseURL string, client *http.Client) *PixelDrain {
	if baseURL == "" {
		baseURL = defaultPixeldrainBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &PixelDrain{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type pixeldrainInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Download fetches the file behind entry.Raw into destDir and returns the
// single resulting item.
func (p *PixelDrain) Download(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error) {
	fileID, err := extractPixeldrainID(entry.Raw)
	if err != nil {
		return nil, err
	}

	info, err := p.fetchInfo(ctx, fileID)
	if err != nil {
		return nil, err
	}

	name := entry.Name
	if name == "" {
		name = info.Name
	}
	if name == "" {
		name = fileID + ".bin"
	}
	name = cleanName(name)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, pkgerror.NewServer(err)
	}
	destPath := filepath.Join(destDir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/file/"+fileID+"?download", nil)
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPStatus("pixeldrain", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = info.Size
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:   "pixeldrain",
			Stage:    entity.StageStarting,
			Filename: name,
			Total:    total,
		})
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, pkgerror.NewServer(err)
	}

	written, err := copyWithProgress(out, resp.Body, pixeldrainChunkSize, total, "pixeldrain", name, report)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:     "pixeldrain",
			Stage:      entity.StageDone,
			Filename:   name,
			Downloaded: written,
			Total:      written,
		})
	}

	return []entity.FetchItem{{Name: name, Path: destPath, Size: written}}, nil
}

func (p *PixelDrain) fetchInfo(ctx context.Context, fileID string) (pixeldrainInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/file/"+fileID+"/info", nil)
	if err != nil {
		return pixeldrainInfo{}, pkgerror.NewNetwork(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return pixeldrainInfo{}, pkgerror.NewNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pixeldrainInfo{}, mapHTTPStatus("pixeldrain", resp.StatusCode)
	}

	var info pixeldrainInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return pixeldrainInfo{}, pkgerror.NewNetwork(fmt.Errorf("pixeldrain: bad info payload: %w", err))
	}

	return info, nil
}
