package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

// TempSweepWorker removes orphaned audio files left in the working directory
// when ingestion is interrupted before its cleanup deferral runs (e.g. a
// crash between download and transcription).
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Sweeps only files matching the ingestion naming pattern
type TempSweepWorker struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewTempSweepWorker creates a worker that sweeps dir every interval,
// removing voice note temp files older than maxAge.
func NewTempSweepWorker(dir string, maxAge, interval time.Duration) *TempSweepWorker {
	return &TempSweepWorker{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. Does not block server startup.
func (w *TempSweepWorker) Start(ctx context.Context) error {
	logging.Default().Info("temp sweep worker starting",
		"dir", w.dir,
		"max_age", w.maxAge.String(),
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *TempSweepWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("temp sweep worker stopped")
}

func (w *TempSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.Sweep(ctx); err != nil {
		logging.Default().Error("initial temp sweep failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				logging.Default().Error("temp sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("temp sweep worker context cancelled")
			return
		}
	}
}

// Sweep performs a single sweep cycle. Files still inside the age window are
// left alone since an ingestion may be using them.
func (w *TempSweepWorker) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to read temp dir", goerr.V("dir", w.dir))
	}

	cutoff := time.Now().Add(-w.maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !isVoiceTempFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(w.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.From(ctx).Warn("failed to remove orphaned audio file",
				"path", path,
				"error", err.Error())
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.From(ctx).Info("removed orphaned audio files",
			"dir", w.dir,
			"count", removed)
	}

	return nil
}

func isVoiceTempFile(name string) bool {
	return strings.HasPrefix(name, "voice_") && strings.HasSuffix(name, ".ogg")
}
