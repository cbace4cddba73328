package persistence

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ExecFunc runs one SQL statement.
type ExecFunc func(ctx context.Context, stmt string) error

// ApplySchema executes the .sql files found in dir, in lexical order. Every
// file must be idempotent; ApplySchema runs on each process start.
func ApplySchema(ctx context.Context, fsys fs.FS, dir string, exec ExecFunc, logger *zap.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema dir %s: %w", dir, err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}

		logger.Debug("applying schema", zap.String("file", name))
		if err := exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply schema %s: %w", name, err)
		}
	}

	logger.Info("schema verified", zap.String("dir", dir), zap.Int("count", len(filenames)))
	return nil
}
