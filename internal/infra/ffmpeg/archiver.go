package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// Archiver writes sampled frames into a zip archive.
type Archiver struct {
	now func() time.Time
}

func NewArchiver() *Archiver {
	return &Archiver{now: time.Now}
}

// FrameName is the archive entry name of the frame at index.
func FrameName(index int) string {
	return fmt.Sprintf("frame_%04d.jpg", index+1)
}

func (a *Archiver) Archive(ctx context.Context, frames []entity.Frame, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	for _, f := range frames {
		select {
		case <-ctx.Done():
			zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addFrameToZip(zipWriter, f, a.now()); err != nil {
			zipWriter.Close()
			return fmt.Errorf("add frame %d to zip: %w", f.Index, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

func addFrameToZip(zw *zip.Writer, f entity.Frame, modified time.Time) error {
	header := &zip.FileHeader{
		Name:     FrameName(f.Index),
		Method:   zip.Deflate,
		Modified: modified,
	}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(f.Data)
	return err
}
