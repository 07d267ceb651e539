// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan enumerates the review documents of a corpus directory tree.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/rob-extract/pkg/types"
)

const defaultSuffix = ".rm5"

// Scan walks cfg.ReviewsDir and returns every regular file whose name ends
// in cfg.Suffix and whose path contains cfg.Marker, in lexical walk order.
// An empty Suffix defaults to ".rm5"; an empty Marker keeps every file.
func Scan(cfg types.ScanConfig) ([]string, error) {
	info, err := os.Stat(cfg.ReviewsDir)
	if err != nil {
		return nil, fmt.Errorf("reading reviews directory %s: %w", cfg.ReviewsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reviews path %s is not a directory", cfg.ReviewsDir)
	}

	suffix := cfg.Suffix
	if suffix == "" {
		suffix = defaultSuffix
	}

	var paths []string
	err = filepath.WalkDir(cfg.ReviewsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if Match(path, suffix, cfg.Marker) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.ReviewsDir, err)
	}
	return paths, nil
}

// Match reports whether path is a candidate review: it ends in suffix and
// contains marker anywhere in the path.
func Match(path, suffix, marker string) bool {
	return strings.HasSuffix(path, suffix) && strings.Contains(path, marker)
}
