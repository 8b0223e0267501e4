// Package source contains the downloaders that fetch host content into the
// local scratch directory.
package source

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
)

// cleanName makes a remote-supplied file name safe to join under a local
// directory.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

func mapHTTPStatus(host string, status int) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return pkgerror.NewNotFound(fmt.Sprintf("%s: resource not found or removed", host))
	case status == http.StatusTooManyRequests:
		return pkgerror.NewRateLimited(fmt.Sprintf("%s: too many requests, retry later", host))
	default:
		return pkgerror.NewNetwork(fmt.Errorf("%s: unexpected status %d", host, status))
	}
}

type speedTracker struct {
	lastTS   time.Time
	lastDone int64
}

func newSpeedTracker() *speedTracker {
	return &speedTracker{lastTS: time.Now()}
}

// sample returns the instantaneous transfer speed since the previous sample
// and the remaining-time estimate when the total is known.
func (s *speedTracker) sample(done, total int64) (speedBPS, etaSec float64) {
	now := time.Now()
	dt := now.Sub(s.lastTS).Seconds()
	if dt < 1e-6 {
		dt = 1e-6
	}

	speedBPS = float64(done-s.lastDone) / dt
	s.lastTS = now
	s.lastDone = done

	if total > 0 && speedBPS > 1e-3 {
		etaSec = float64(total-done) / speedBPS
	}

	return speedBPS, etaSec
}

// copyWithProgress streams src into dst in chunkSize pieces, reporting one
// downloading event per chunk. Total may be 0 when the size is unknown.
func copyWithProgress(dst io.Writer, src io.Reader, chunkSize int, total int64, host, filename string, report entity.ProgressFunc) (int64, error) {
	if chunkSize < 1 {
		chunkSize = 64 * 1024
	}

	buf := make([]byte, chunkSize)
	tracker := newSpeedTracker()
	var done int64

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return done, werr
			}
			done += int64(n)

			if report != nil {
				speed, eta := tracker.sample(done, total)
				report(entity.ProgressEvent{
					Source:     host,
					Stage:      entity.StageDownloading,
					Filename:   filename,
					Downloaded: done,
					Total:      total,
					SpeedBPS:   speed,
					ETASec:     eta,
				})
			}
		}

		if rerr == io.EOF {
			return done, nil
		}
		if rerr != nil {
			return done, rerr
		}
	}
}
