package event

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

// ConsoleSink renders one progress bar per transferred file. It runs on the
// consumer goroutine and keeps no locks of its own.
type ConsoleSink struct {
	out  io.Writer
	bars map[string]*transferBar
}

// transferBar remembers whether the bar started without a known total, since
// the library reports a sentinel max in that mode.
type transferBar struct {
	bar           *progressbar.ProgressBar
	indeterminate bool
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stderr
	}

	return &ConsoleSink{
		out:  out,
		bars: make(map[string]*transferBar),
	}
}

func (s *ConsoleSink) Consume(event entity.ProgressEvent) {
	key := barKey(event)

	switch event.Stage {
	case entity.StageStarting, entity.StageDownloading, entity.StageUploading:
		tb, ok := s.bars[key]
		if !ok {
			tb = s.newBar(event)
			s.bars[key] = tb
		}
		if tb.indeterminate && event.Total > 0 {
			tb.bar.ChangeMax64(event.Total)
			tb.indeterminate = false
		}
		if event.Downloaded > 0 {
			_ = tb.bar.Set64(event.Downloaded)
		}
	case entity.StageDone:
		if tb, ok := s.bars[key]; ok {
			_ = tb.bar.Finish()
			delete(s.bars, key)
			return
		}
		if event.Message != "" {
			fmt.Fprintf(s.out, "%s %s\n", describe(event), event.Message)
		}
	case entity.StageError:
		if tb, ok := s.bars[key]; ok {
			_ = tb.bar.Exit()
			delete(s.bars, key)
		}
		if event.Message != "" {
			fmt.Fprintf(s.out, "%s %s\n", describe(event), event.Message)
		}
	}
}

// newBar builds a byte-count bar, or a spinner while the size is unknown.
func (s *ConsoleSink) newBar(event entity.ProgressEvent) *transferBar {
	total := event.Total
	if total <= 0 {
		total = -1
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(describe(event)),
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(s.out)
		}),
	)

	return &transferBar{bar: bar, indeterminate: total < 0}
}

func barKey(event entity.ProgressEvent) string {
	return event.RunID + "|" + strconv.Itoa(event.ItemIdx) + "|" + event.Filename
}

func describe(event entity.ProgressEvent) string {
	src := event.Source
	if src == "" {
		src = "?"
	}
	if event.ItemIdx > 0 && event.ItemCount > 0 {
		src = fmt.Sprintf("%s %d/%d", src, event.ItemIdx, event.ItemCount)
	}

	if event.Filename == "" {
		return "[" + src + "]"
	}
	return fmt.Sprintf("[%s] %s", src, trimName(event.Filename, 40))
}

func trimName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max-1]) + "…"
}
