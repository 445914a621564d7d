package scenario

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/attend/internal/adapters/capture"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// SaveRecords writes records to filename as a replay file.
func SaveRecords(ctx context.Context, filename string, records []capture.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to save")
	}

	if err := ensureDir(filename); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	w := bufio.NewWriter(file)
	if err := capture.WriteRecords(w, records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}

	logger.Get().Info(ctx, "recording saved to file",
		logger.String("filename", filename),
		logger.Int("records", len(records)))
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func decodeEventLog(r io.Reader) ([]model.Record, error) {
	var out []model.Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var rec model.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("event log line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return out, nil
}
