package entity

import "errors"

var (
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrMetadataUnavailable = errors.New("media metadata unavailable")
	ErrExtraction          = errors.New("frame extraction failed")
	ErrComposite           = errors.New("composite failed")
	ErrCanvasUnavailable   = errors.New("drawing surface unavailable")

	ErrInvalidTransition = errors.New("invalid step transition")
	ErrInvalidInterval   = errors.New("sampling interval out of range")
	ErrSessionSuperseded = errors.New("session superseded")
	ErrBusy              = errors.New("operation already in progress")
	ErrFrameOutOfRange   = errors.New("frame index out of range")
)
