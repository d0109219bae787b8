package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

const maxLineSize = 4 << 20

// ReadJSONL decodes one JSON object per line. Blank lines are skipped.
func ReadJSONL(r io.Reader, d schema.Description) ([]*item.Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var items []*item.Item
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var attrs map[string]value.Value
		if err := json.Unmarshal([]byte(text), &attrs); err != nil {
			return nil, mserrors.Wrap(mserrors.ErrBackend, fmt.Sprintf("jsonl line %d", line), err)
		}
		items = append(items, item.Decode(d, attrs))
	}
	if err := sc.Err(); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrBackend, "read jsonl", err)
	}
	return items, nil
}

// WriteJSONL encodes items one per line using store attribute names.
func WriteJSONL(w io.Writer, d schema.Description, items []*item.Item) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(item.Encode(d, it)); err != nil {
			return mserrors.Wrap(mserrors.ErrBackend, "write jsonl", err)
		}
	}
	return nil
}

// LoadFile reads a JSON-lines file into a new item store.
func LoadFile(ctx context.Context, path string, d schema.Description, opts ...Option) (*Store[item.Item], error) {
	typ, err := item.NewType(d)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrBackend, "open "+path, err)
	}
	defer f.Close()

	items, err := ReadJSONL(f, d)
	if err != nil {
		return nil, err
	}
	s := New(typ, opts...)
	if err := s.Insert(ctx, items...); err != nil {
		return nil, err
	}
	return s, nil
}
