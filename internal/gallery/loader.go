package gallery

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// decodable lists the allowed extensions with a registered decoder.
var decodable = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// FileLoader loads images from the local filesystem relative to Root.
//
// Formats the standard library can decode are checked by reading their
// header; other allowed formats only need to be non-empty files.
type FileLoader struct {
	Root string
}

// Load checks path in a new goroutine and reports the result to done.
func (l FileLoader) Load(path string, done func(error)) {
	go func() {
		done(l.check(path))
	}()
}

func (l FileLoader) check(path string) error {
	full := path
	if l.Root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.Root, path)
	}

	f, err := os.Open(full)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("image %s is empty", path)
	}

	if _, _, err := image.DecodeConfig(f); err != nil {
		if errors.Is(err, image.ErrFormat) && !decodable[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		return fmt.Errorf("decode image %s: %w", path, err)
	}
	return nil
}
