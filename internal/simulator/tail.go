// File: internal/simulator/tail.go
package simulator

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

const fileSource = "file-monitor"

// followFile tails a log file and ingests every appended line. Lines may
// carry a "LEVEL:" prefix; anything else is ingested as INFO.
func (s *Simulator) followFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Failed to open followed file", err.Error())
	}
	defer f.Close()

	// Start at the end, like tail -f.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to seek followed file", err.Error())
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create file watcher", err.Error())
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Failed to watch followed file", err.Error())
	}

	s.logger.WithField("file", path).Info("Starting file log simulator")

	reader := bufio.NewReader(f)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			if err := s.drainLines(ctx, reader); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("File watcher error")
		}
	}
}

// drainLines ingests all complete lines appended since the last event
func (s *Simulator) drainLines(ctx context.Context, reader *bufio.Reader) error {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial line: wait for the rest on the next write event.
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}

		level, message := parseLine(line)
		req := models.IngestRequest{Level: level, Message: message, Source: fileSource}
		if err := s.send(ctx, req); err != nil {
			s.logger.WithError(err).Warn("Failed to send log record")
		}
	}
}

// parseLine splits an optional "LEVEL:" prefix off a log line
func parseLine(line string) (level, message string) {
	for _, l := range defaultLevels {
		prefix := l + ":"
		if strings.HasPrefix(strings.ToUpper(line), prefix) {
			return l, strings.TrimSpace(line[len(prefix):])
		}
	}
	return "INFO", line
}
