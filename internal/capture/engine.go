// Package capture drives the camera: the continuous recognize-and-annotate
// loop behind the Face Recognition page, and the single-frame capture behind
// the Add Face page.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/facegate/internal/camera"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/match"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/stream"
)

// newFaceLabel is drawn on faces that match nothing in the snapshot.
const newFaceLabel = "New Face"

// SnapshotLoader supplies the gallery snapshot consumed by the loop.
type SnapshotLoader interface {
	LoadAll(ctx context.Context) (*domain.Snapshot, error)
}

// Engine owns the camera. It has two states: Idle (no device acquired) and
// Running (device acquired, polling frames). The camera is a single shared
// resource, so at most one acquisition is active at a time; the one-shot
// capture refuses to run while the loop holds the device and vice versa.
type Engine struct {
	open     camera.Opener
	index    int
	provider provider.FaceProvider
	matcher  *match.Matcher
	gallery  SnapshotLoader
	hub      *stream.Hub
	logger   *slog.Logger

	mu       sync.Mutex
	acquired bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastErr  error
}

func NewEngine(
	open camera.Opener,
	index int,
	faceProvider provider.FaceProvider,
	matcher *match.Matcher,
	gallery SnapshotLoader,
	hub *stream.Hub,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		open:     open,
		index:    index,
		provider: faceProvider,
		matcher:  matcher,
		gallery:  gallery,
		hub:      hub,
		logger:   logger,
	}
}

// Running reports whether the recognition loop holds the camera.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// LastError returns the error that ended the previous run, if any. Cleared
// by the next successful Start.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Start acquires the camera, loads the gallery snapshot and launches the
// recognition loop. The snapshot is loaded once per run and not refreshed
// while the loop is running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.acquired {
		e.mu.Unlock()
		return domain.ErrCameraBusy
	}
	e.acquired = true
	e.lastErr = nil
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		e.acquired = false
		e.mu.Unlock()
	}

	device, err := e.open(e.index)
	if err != nil {
		release()
		return domain.ErrCaptureFailed.WithError(err)
	}

	snapshot, err := e.gallery.LoadAll(ctx)
	if err != nil {
		_ = device.Close()
		release()
		return fmt.Errorf("load gallery snapshot: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	e.logger.Info("recognition loop started", slog.Int("gallery_size", snapshot.Len()))

	go e.run(runCtx, device, snapshot, done)

	return nil
}

// Stop signals the loop to end at the next iteration boundary and waits for
// the camera to be released. Safe to call when Idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (e *Engine) run(ctx context.Context, device camera.Device, snapshot *domain.Snapshot, done chan struct{}) {
	defer func() {
		if err := device.Close(); err != nil {
			e.logger.Warn("release camera", slog.Any("error", err))
		}

		e.mu.Lock()
		e.cancel = nil
		e.done = nil
		e.acquired = false
		e.mu.Unlock()

		e.logger.Info("recognition loop stopped")
		close(done)
	}()

	for {
		// Cancellation is observed between frames, never mid-frame.
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := device.Read()
		if err != nil {
			e.mu.Lock()
			e.lastErr = domain.ErrCaptureFailed.WithError(err)
			e.mu.Unlock()
			return
		}

		e.annotate(ctx, frame, snapshot)

		encoded, err := frame.JPEG()
		frame.Close()
		if err != nil {
			e.logger.Warn("encode annotated frame", slog.Any("error", err))
			continue
		}

		e.hub.Publish(encoded)
	}
}

// annotate detects and identifies every face in the frame and draws the
// overlay: green box with "name, contact" on a match, red box with the
// new-face label otherwise. An unknown embedding repeated within the same
// frame is labeled only once.
func (e *Engine) annotate(ctx context.Context, frame camera.Frame, snapshot *domain.Snapshot) {
	encoded, err := frame.JPEG()
	if err != nil {
		e.logger.Warn("encode frame for detection", slog.Any("error", err))
		return
	}

	regions, err := e.provider.Detect(ctx, encoded)
	if err != nil {
		e.logger.Warn("detect faces", slog.Any("error", err))
		return
	}
	if len(regions) == 0 {
		return
	}

	embeddings, err := e.provider.Embed(ctx, encoded, regions)
	if err != nil {
		e.logger.Warn("embed faces", slog.Any("error", err))
		return
	}

	seenNew := make(map[string]struct{})

	for i, region := range regions {
		result, err := e.matcher.Identify(ctx, embeddings[i], snapshot)
		if err != nil {
			e.logger.Warn("identify face", slog.Any("error", err))
			continue
		}

		if result != nil {
			frame.DrawBox(region, result.Name+", "+result.Contact, camera.Green)
			continue
		}

		key := string(domain.EncodeEmbedding(embeddings[i]))
		if _, dup := seenNew[key]; dup {
			continue
		}
		seenNew[key] = struct{}{}
		frame.DrawBox(region, newFaceLabel, camera.Red)
	}
}

// CaptureOnce grabs a single frame, detects faces and returns the first
// face's embedding together with the raw frame JPEG. The device is acquired
// and released within the call. Zero detected faces is an error and nothing
// is retained.
func (e *Engine) CaptureOnce(ctx context.Context) ([]float64, []byte, error) {
	e.mu.Lock()
	if e.acquired {
		e.mu.Unlock()
		return nil, nil, domain.ErrCameraBusy
	}
	e.acquired = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.acquired = false
		e.mu.Unlock()
	}()

	device, err := e.open(e.index)
	if err != nil {
		return nil, nil, domain.ErrCaptureFailed.WithError(err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			e.logger.Warn("release camera", slog.Any("error", err))
		}
	}()

	frame, err := device.Read()
	if err != nil {
		return nil, nil, domain.ErrCaptureFailed.WithError(err)
	}
	defer frame.Close()

	encoded, err := frame.JPEG()
	if err != nil {
		return nil, nil, domain.ErrCaptureFailed.WithError(err)
	}

	regions, err := e.provider.Detect(ctx, encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(regions) == 0 {
		return nil, nil, domain.ErrNoFaceDetected
	}

	embeddings, err := e.provider.Embed(ctx, encoded, regions)
	if err != nil {
		return nil, nil, fmt.Errorf("embed faces: %w", err)
	}

	return embeddings[0], encoded, nil
}
