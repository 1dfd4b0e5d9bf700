package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"treetally/internal/domain"
)

var ErrMalformedRecord = errors.New("malformed cache record")

var csvHeader = []string{"path", "size", "last_modified", "script_count", "is_allowed"}

func DefaultCachePath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "treetally", "cache.csv"), nil
}

// Dump writes one row per path in lexicographic path order.
func Dump(w io.Writer, store domain.AggregateStore) error {
	keys := make([]string, 0, len(store))
	for key := range store {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, key := range keys {
		record := store[key]
		row := []string{
			key,
			strconv.FormatUint(record.Size, 10),
			strconv.FormatUint(record.LastModified, 10),
			strconv.FormatUint(record.ScriptCount, 10),
			strconv.FormatBool(record.IsAllowed),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func Load(r io.Reader) (domain.AggregateStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)
	reader.ReuseRecord = true

	store := domain.AggregateStore{}
	line := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return store, nil
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if line == 1 && isHeader(row) {
			continue
		}
		path, record, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedRecord, line, err)
		}
		store[path] = record
	}
}

// DumpFile replaces path atomically so a failed write never clobbers the
// previous cache.
func DumpFile(fs afero.Fs, path string, store domain.AggregateStore) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp, err := afero.TempFile(fs, dir, ".cache-*.csv")
	if err != nil {
		return err
	}
	tempName := temp.Name()
	if err := Dump(temp, store); err != nil {
		_ = temp.Close()
		_ = fs.Remove(tempName)
		return err
	}
	if err := temp.Close(); err != nil {
		_ = fs.Remove(tempName)
		return err
	}
	if err := fs.Rename(tempName, path); err != nil {
		_ = fs.Remove(tempName)
		return err
	}
	return nil
}

// LoadFile treats a missing cache file as a cold start.
func LoadFile(fs afero.Fs, path string) (domain.AggregateStore, error) {
	file, err := fs.Open(path)
	if err != nil {
		if isNotExist(err) {
			return domain.AggregateStore{}, nil
		}
		return nil, err
	}
	defer file.Close()
	store, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

func isHeader(row []string) bool {
	for index, column := range csvHeader {
		if row[index] != column {
			return false
		}
	}
	return true
}

func parseRow(row []string) (string, domain.NodeRecord, error) {
	if row[0] == "" {
		return "", domain.NodeRecord{}, fmt.Errorf("empty path")
	}
	size, err := strconv.ParseUint(row[1], 10, 64)
	if err != nil {
		return "", domain.NodeRecord{}, fmt.Errorf("size: %w", err)
	}
	modified, err := strconv.ParseUint(row[2], 10, 64)
	if err != nil {
		return "", domain.NodeRecord{}, fmt.Errorf("last_modified: %w", err)
	}
	scripts, err := strconv.ParseUint(row[3], 10, 64)
	if err != nil {
		return "", domain.NodeRecord{}, fmt.Errorf("script_count: %w", err)
	}
	allowed, err := strconv.ParseBool(row[4])
	if err != nil {
		return "", domain.NodeRecord{}, fmt.Errorf("is_allowed: %w", err)
	}
	return row[0], domain.NodeRecord{
		Size:         size,
		LastModified: modified,
		ScriptCount:  scripts,
		IsAllowed:    allowed,
	}, nil
}
