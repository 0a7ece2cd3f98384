package handler

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/stream"
)

const mjpegBoundary = "facegateframe"

// RecognizeHandler drives the Face Recognition page: the run toggle and the
// live annotated stream.
type RecognizeHandler struct {
	engine *capture.Engine
	hub    *stream.Hub
	logger *slog.Logger
}

func NewRecognizeHandler(engine *capture.Engine, hub *stream.Hub, logger *slog.Logger) *RecognizeHandler {
	return &RecognizeHandler{
		engine: engine,
		hub:    hub,
		logger: logger,
	}
}

func (h *RecognizeHandler) Page(c *fiber.Ctx) error {
	data := fiber.Map{
		"Title":   "Face Recognition",
		"Running": h.engine.Running(),
	}
	if err := h.engine.LastError(); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			data["Error"] = appErr.Message
		} else {
			data["Error"] = "The last capture session ended unexpectedly"
		}
	}
	return c.Render("recognize", data)
}

func (h *RecognizeHandler) Start(c *fiber.Ctx) error {
	err := h.engine.Start(c.UserContext())
	if err != nil && !errors.Is(err, domain.ErrCameraBusy) {
		return err
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *RecognizeHandler) Stop(c *fiber.Ctx) error {
	h.engine.Stop()
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Stream serves the annotated frames as multipart MJPEG. The connection
// stays open across engine stop and start; while no frames arrive the last
// one is re-sent as a keepalive so dead clients are noticed.
func (h *RecognizeHandler) Stream(c *fiber.Ctx) error {
	frames, unsubscribe := h.hub.Subscribe()

	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Set(fiber.HeaderCacheControl, "no-store")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		keepalive := time.NewTicker(5 * time.Second)
		defer keepalive.Stop()

		for {
			var frame []byte
			select {
			case frame = <-frames:
			case <-keepalive.C:
				frame = h.hub.Latest()
			}
			if frame == nil {
				continue
			}

			if err := writeMJPEGPart(w, frame); err != nil {
				return
			}
		}
	}))

	return nil
}

func writeMJPEGPart(w *bufio.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
