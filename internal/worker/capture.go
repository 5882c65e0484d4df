package worker

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// FrameSource yields sequential frames from a stream. Next returns io.EOF
// at end of stream; Close releases the underlying capture resource.
type FrameSource interface {
	Next(frame *gocv.Mat) error
	Close() error
}

// VideoSource is the gocv-backed FrameSource for RTSP URLs, device indexes
// and video files.
type VideoSource struct {
	capture *gocv.VideoCapture
}

// OpenVideoSource opens the stream. Failure here is fatal to the worker; a
// camera that cannot open must not spin.
func OpenVideoSource(url string) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", url, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video source %s is not opened", url)
	}
	// Keep latency down on live streams: decode the newest frame, not a
	// backlog.
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	return &VideoSource{capture: capture}, nil
}

func (s *VideoSource) Next(frame *gocv.Mat) error {
	if !s.capture.Read(frame) {
		return io.EOF
	}
	if frame.Empty() {
		return io.EOF
	}
	return nil
}

func (s *VideoSource) Close() error {
	return s.capture.Close()
}
