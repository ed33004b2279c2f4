package frameio

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// ImageSequenceSource reads frames from image files of a directory in lexical file name order,
// e.g. frames exported as frame_00001.png, frame_00002.png, ...
type ImageSequenceSource struct {
	paths []string
	next  int
}

// NewImageSequenceSource lists supported images in dir
func NewImageSequenceSource(dir string) (*ImageSequenceSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read directory '%s'", dir)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return &ImageSequenceSource{
		paths: paths,
	}, nil
}

// Len returns number of frames in sequence
func (src *ImageSequenceSource) Len() int {
	return len(src.paths)
}

// NextFrame decodes next image. io.EOF is returned after the last one
func (src *ImageSequenceSource) NextFrame(ctx context.Context) (*sot.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.next >= len(src.paths) {
		return nil, io.EOF
	}
	path := src.paths[src.next]
	src.next++
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	return sot.NewFrame(img), nil
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open frame '%s'", path)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't decode frame '%s'", path)
	}
	return img, nil
}

// FixedSelector picks a preconfigured box instead of asking a user
type FixedSelector struct {
	BBox sot.Rectangle
}

// Select returns configured box
func (sel FixedSelector) Select(frame *sot.Frame) (sot.Rectangle, error) {
	return sel.BBox, nil
}
