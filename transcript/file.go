/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads transcripts saved as round-<n>.json, round-<n>.yaml or
// round-<n>.yml from a directory.
type FileSource struct {
	fsys fs.FS
}

func NewFileSource(dir string) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript dir %q is not a directory", dir)
	}

	return &FileSource{fsys: os.DirFS(dir)}, nil
}

// NewFSSource is NewFileSource over an arbitrary filesystem.
func NewFSSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

func (s *FileSource) Load(ctx context.Context, req Request) (*Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req = req.withDefaults()

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name := fmt.Sprintf("round-%d%s", req.Round, ext)

		data, err := fs.ReadFile(s.fsys, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		t, err := decodeFile(ext, data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}

		return t, nil
	}

	return nil, fmt.Errorf("round %d: %w", req.Round, ErrNotFound)
}

func decodeFile(ext string, data []byte) (*Transcript, error) {
	var t Transcript

	if ext == ".json" {
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}

		return &t, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}

	return &t, nil
}
