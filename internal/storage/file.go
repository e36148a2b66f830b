package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".jsonc"

// FileRepository keeps one JSON file per chat inside a directory.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(id ChatID) (string, error) {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return filepath.Join(r.dir, s+fileExt), nil
}

// Save writes the record to a temp file and renames it over the previous one.
func (r *FileRepository) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := r.path(rec.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(normalize(rec))
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tmp, err := os.CreateTemp(r.dir, string(rec.ID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename %s: %w", rec.ID, err)
	}
	return nil
}

func (r *FileRepository) LoadAll(ctx context.Context) ([]Record, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, []error{&LoadError{Key: r.dir, Err: err}}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		records []Record
		errs    []error
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != fileExt {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		rec, err := readRecord(filepath.Join(r.dir, name))
		if err != nil {
			errs = append(errs, &LoadError{Key: key, Err: err})
			continue
		}
		// the file name is the key; the embedded ID may be stale or missing
		rec.ID = ChatID(key)
		records = append(records, normalize(rec))
	}
	return records, errs
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode: %w", err)
	}
	return rec, nil
}

func (r *FileRepository) Close() error { return nil }
