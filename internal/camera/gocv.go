package camera

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrNoFrame is returned when the device produces no frame; the capture
// loop treats it as the end of the session.
var ErrNoFrame = errors.New("camera returned no frame")

// OpenDevice acquires the webcam by index. Frames come out BGR-ordered, the
// OpenCV default.
func OpenDevice(index int) (Device, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open video capture device %d: %w", index, err)
	}
	return &gocvDevice{capture: capture}, nil
}

type gocvDevice struct {
	capture *gocv.VideoCapture
}

func (d *gocvDevice) Read() (Frame, error) {
	mat := gocv.NewMat()
	if ok := d.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &gocvFrame{mat: mat}, nil
}

func (d *gocvDevice) Close() error {
	return d.capture.Close()
}

type gocvFrame struct {
	mat gocv.Mat
}

func (f *gocvFrame) JPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer dies with Close; copy out.
	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

func (f *gocvFrame) DrawBox(region domain.Region, label string, c Color) {
	col := color.RGBA{G: 255}
	if c == Red {
		col = color.RGBA{R: 255}
	}

	rect := image.Rect(region.Left, region.Top, region.Right, region.Bottom)
	gocv.Rectangle(&f.mat, rect, col, 2)
	gocv.PutText(&f.mat, label, image.Pt(region.Left, region.Top-10), gocv.FontHersheySimplex, 0.5, col, 2)
}

func (f *gocvFrame) Close() {
	f.mat.Close()
}
