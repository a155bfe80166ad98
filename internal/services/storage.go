// doc-flow/internal/services/storage.go
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/colaisr/doc-flow/config"
)

// uploadsBaseDir returns the root directory for stored PDFs. Configurable so
// deployments can point it at a mounted volume.
func uploadsBaseDir() string {
	if config.App.UploadsDir != "" {
		return config.App.UploadsDir
	}
	return "./storage/uploads"
}

// ensureDir makes sure the directory exists. An existing file at the path is
// an error.
func ensureDir(path string) error {
	if path == "" {
		return errors.New("empty dir path")
	}
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return errors.New("path exists and is not a directory")
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

// saveUploadedPDF stores a PDF under <base>/<org>/<lead>/<uuid>.pdf and
// returns the stored path. The file name is random so uploads can never
// collide or be guessed.
func saveUploadedPDF(orgID, leadID uint, data []byte) (string, error) {
	dir := filepath.Join(uploadsBaseDir(), fmt.Sprintf("%d", orgID), fmt.Sprintf("%d", leadID))
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.New().String()+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
