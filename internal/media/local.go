// Package media stores uploaded catalog images on the local filesystem
// under <root>/uploads and hands back public relative paths.
package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxImageSize = 5 << 20

var (
	ErrMissingExtension = errors.New("image file extension is required")
	ErrImageTooLarge    = errors.New("image file too large (max 5MB)")
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

type Store interface {
	Save(file *multipart.FileHeader) (string, error)
	Delete(relPath string) error
}

type LocalStore struct {
	root   string
	folder string
}

// NewLocalStore writes into <root>/uploads/<folder>.
func NewLocalStore(root, folder string) *LocalStore {
	return &LocalStore{root: filepath.Clean(root), folder: folder}
}

func (s *LocalStore) Save(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", ErrMissingExtension
	}
	if _, ok := allowedExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", ErrImageTooLarge
	}

	filename := primitive.NewObjectID().Hex() + extension

	dir := filepath.Join(s.root, "uploads", s.folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[UPLOAD] [ERROR] failed to create directory %s: %v", dir, err)
		return "", err
	}

	fullPath := filepath.Join(dir, filename)

	in, err := file.Open()
	if err != nil {
		log.Printf("[UPLOAD] [ERROR] failed to open upload %s: %v", file.Filename, err)
		return "", err
	}
	defer in.Close()

	out, err := os.Create(fullPath)
	if err != nil {
		log.Printf("[UPLOAD] [ERROR] failed to create file %s: %v", fullPath, err)
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		log.Printf("[UPLOAD] [ERROR] failed to save file %s: %v", fullPath, err)
		_ = os.Remove(fullPath)
		return "", err
	}

	return path.Join("uploads", s.folder, filename), nil
}

// Delete removes a previously saved upload. Paths outside uploads/ are
// refused and a missing file is not an error.
func (s *LocalStore) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	target := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(cleanRel)))
	if target != s.root && !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside public root: %s", relPath)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
