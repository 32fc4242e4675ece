package imageset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// DefaultExtensions are the image types picked up from the input directory.
var DefaultExtensions = []string{".png", ".jpg"}

// Discover lists the files in dir whose extension is one of exts, grouped by
// extension in the order exts are given. Matching is case-insensitive and
// hidden files are skipped. Symlinks are followed and kept only when they
// point at a regular file. Callers must not rely on the order within a group.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// A missing directory is just as empty as one without images.
		return nil, fmt.Errorf("%w in directory %s: %w", calibration.ErrNoImagesFound, dir, err)
	}

	var images []string
	for _, ext := range exts {
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ext) {
				continue
			}
			path := filepath.Join(dir, name)
			if !isRegular(path, e) {
				continue
			}
			images = append(images, path)
		}
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w in directory %s", calibration.ErrNoImagesFound, dir)
	}

	return images, nil
}

func isRegular(path string, e os.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// LoadTestImage decodes the image used to size the remap table. Any failure
// is reported as ErrTestImageUnreadable.
func LoadTestImage(dec calibration.Decoder, path string) (calibration.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", calibration.ErrTestImageUnreadable, path, err)
	}

	frame, err := dec.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", calibration.ErrTestImageUnreadable, path, err)
	}

	size := frame.Size()
	if size.X <= 0 || size.Y <= 0 {
		_ = frame.Close()
		return nil, fmt.Errorf("%w: %s: empty image", calibration.ErrTestImageUnreadable, path)
	}

	return frame, nil
}

// LoadCalibrationImage decodes one calibration image.
func LoadCalibrationImage(dec calibration.Decoder, path string) (calibration.Frame, error) {
	frame, err := dec.Decode(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read calibration image %s", path)
	}
	return frame, nil
}
