// Package camera abstracts the capture device so the recognition loop can be
// exercised without hardware. The production implementation wraps OpenCV via
// gocv; tests substitute fakes.
package camera

import (
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Color selects the annotation palette. Matched identities are drawn green,
// unknown faces red.
type Color int

const (
	Green Color = iota
	Red
)

// Frame is one captured video frame. Frames own native memory and must be
// closed by the consumer.
type Frame interface {
	// JPEG encodes the frame, annotations included, as a JPEG byte stream.
	JPEG() ([]byte, error)

	// DrawBox draws a bounding rectangle and a text label above it.
	DrawBox(region domain.Region, label string, color Color)

	Close()
}

// Device is an acquired camera. At most one Device may be open at a time;
// callers must Close on every exit path.
type Device interface {
	// Read blocks for the next frame. A read failure means the device is
	// gone or busy and ends the capture session.
	Read() (Frame, error)

	Close() error
}

// Opener acquires the camera device by index.
type Opener func(index int) (Device, error)
