package bulkimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Source yields an already-parsed batch. Spreadsheet parsing happens
// upstream; both sources read its JSON export.
type Source interface {
	Load(ctx context.Context) (Batch, error)
}

type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return Batch{}, fmt.Errorf("open import source: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ReaderSource は HTTP のリクエストボディなどから読む
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Load(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	return Decode(s.R)
}

func Decode(r io.Reader) (Batch, error) {
	var b Batch
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return Batch{}, fmt.Errorf("decode import batch: %w", err)
	}
	return b, nil
}
