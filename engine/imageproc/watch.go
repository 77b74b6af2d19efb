package imageproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchSettle is how long the watcher waits after the last change before recompiling,
// so an editor's write-rename-chmod burst triggers one rebuild.
const watchSettle = 100 * time.Millisecond

var errNoPipelineDir = errors.New("imageproc: watching requires a pipeline directory")

func (ip *imageProcessing) WatchPipelines(ctx context.Context) error {
	if ip.pipelineDir == "" {
		return errNoPipelineDir
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create pipeline watcher: %w", err)
	}
	for _, dir := range []string{"", "pipelines", "shaders"} {
		p := filepath.Join(ip.pipelineDir, dir)
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	go ip.watchLoop(ctx, watcher)
	ip.log.Info("watching pipelines", zap.String("dir", ip.pipelineDir))
	return nil
}

func (ip *imageProcessing) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	settle := time.NewTimer(watchSettle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			switch filepath.Ext(event.Name) {
			case ".yaml", ".yml", ".wgsl":
				ip.log.Debug("pipeline file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
				settle.Reset(watchSettle)
			}
		case <-settle.C:
			if err := ip.RecompileRenderPipelineShaders(); err != nil {
				ip.log.Error("hot reload failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ip.log.Warn("pipeline watcher error", zap.Error(err))
		}
	}
}
