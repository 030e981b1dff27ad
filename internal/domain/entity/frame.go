package entity

import (
	"strconv"
	"time"
)

// Frame is one sampled still, encoded as JPEG, captured at Timestamp seconds.
type Frame struct {
	Index     int
	Timestamp float64
	Width     int
	Height    int
	Data      []byte
}

// Mask is an encoded raster (PNG) whose alpha channel selects the pixels of
// the owning frame that reach the composite.
type Mask struct {
	Width  int
	Height int
	Data   []byte
}

// CompositeResult is the encoded chronophoto. It is replaced wholesale on
// every composite run.
type CompositeResult struct {
	Width     int
	Height    int
	Data      []byte
	CreatedAt time.Time
}

// FileName returns the download name chronophoto-<unix-ms>.jpg.
func (r *CompositeResult) FileName() string {
	return ResultFileName(r.CreatedAt)
}

func ResultFileName(t time.Time) string {
	return "chronophoto-" + strconv.FormatInt(t.UnixMilli(), 10) + ".jpg"
}
