package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

// DirectorySource serves the newest JPEG written into a directory.
// An external capture tool drops snapshots into the directory; every
// Acquire returns the latest complete one.
type DirectorySource struct {
	dir    string
	logger ports.Logger

	mu      sync.Mutex
	latest  []byte
	modTime time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDirectorySource creates a source for dir. Call Start to begin watching.
func NewDirectorySource(dir string, logger ports.Logger) *DirectorySource {
	return &DirectorySource{dir: dir, logger: logger}
}

// Start loads the newest existing snapshot and watches for new ones until
// ctx is canceled or Close is called.
func (d *DirectorySource) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}

	d.scan()

	watchCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.watchLoop(watchCtx, watcher)

	d.logger.Info("directory source watching", ports.String("dir", d.dir))
	return nil
}

// Close stops watching.
func (d *DirectorySource) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *DirectorySource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer d.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isJPEG(event.Name) {
				continue
			}
			// Renames into the directory arrive as Create; in-place writers as Write.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			d.load(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("directory watcher error", ports.Err(err))
		}
	}
}

// scan loads the most recently modified JPEG in the directory.
func (d *DirectorySource) scan() {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		d.logger.Warn("scan snapshot dir", ports.Err(err))
		return
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !isJPEG(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestTime) {
			newest, newestTime = e.Name(), info.ModTime()
		}
	}
	if newest != "" {
		d.load(filepath.Join(d.dir, newest))
	}
}

func (d *DirectorySource) load(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Debug("read snapshot", ports.Path(path), ports.Err(err))
		return
	}
	if !completeJPEG(data) {
		// Writer not finished; the next Write event will retry.
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if info.ModTime().Before(d.modTime) {
		return
	}
	d.latest = data
	d.modTime = info.ModTime()
}

// Acquire returns the newest snapshot. The data is never modified after
// being published, so no copy is made.
func (d *DirectorySource) Acquire(ctx context.Context) (domain.FrameView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.latest) == 0 {
		return domain.FrameView{}, fmt.Errorf("%w: no snapshot in %s", domain.ErrCaptureFailed, d.dir)
	}
	return domain.FrameView{Data: d.latest}, nil
}

// Release is a no-op; snapshots are immutable.
func (d *DirectorySource) Release() {}

func isJPEG(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

// completeJPEG checks for the SOI and EOI markers.
func completeJPEG(b []byte) bool {
	n := len(b)
	return n >= 4 && b[0] == 0xFF && b[1] == 0xD8 && b[n-2] == 0xFF && b[n-1] == 0xD9
}
