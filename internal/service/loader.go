package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
)

// LoadFile reads one document. Its identity is the cleaned path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	clean := filepath.Clean(path)
	return Document{Identity: clean, FileName: filepath.Base(clean), Data: data}, nil
}

// LoadDirectory reads every supported document under root in lexical order.
// Unreadable files are logged and left out.
func LoadDirectory(root string, recursive bool) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logrus.Warnf("service.LoadDirectory: skipping %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(path) {
			return nil
		}
		doc, err := LoadFile(path)
		if err != nil {
			logrus.Warnf("service.LoadDirectory: %v", err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.Infof("service.LoadDirectory: found %d document(s) under %s", len(docs), root)
	return docs, nil
}

// Supported reports whether the file extension is one the pipeline accepts.
func Supported(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := domain.AllowedExtensions[ext]
	return ok
}
