// Package storage legt Screenshot-Dateien auf der lokalen Platte ab.
package storage

import (
	"bugpilot/internal/models"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxScreenshotSize begrenzt einzelne Uploads auf 10 MiB.
const MaxScreenshotSize = 10 << 20

const (
	FieldName = "screenshot"
	URLPrefix = "/uploads/"
)

var (
	ErrUnsupportedImage = fmt.Errorf("nur Bilder (jpeg, jpg, png, gif) sind erlaubt: %w", models.ErrInvalidArgument)
	ErrFileTooLarge     = fmt.Errorf("datei ist größer als 10 MiB: %w", models.ErrInvalidArgument)
)

var allowedExtensions = []string{".jpeg", ".jpg", ".png", ".gif"}
var allowedMIMETypes = []string{"image/jpeg", "image/png", "image/gif"}

// sniffLen entspricht dem Standard-Leselimit von mimetype.
const sniffLen = 3072

// LocalStore speichert Dateien flach in einem Verzeichnis.
type LocalStore struct {
	dir     string
	baseURL string
	now     func() time.Time
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fehler beim Anlegen des Upload-Verzeichnisses %s: %w", dir, err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// URL liefert die öffentliche Adresse einer gespeicherten Datei.
func (s *LocalStore) URL(name string) string {
	return s.baseURL + URLPrefix + name
}

// NameFromURL ist die Umkehrung von URL.
func NameFromURL(url string) string {
	return path.Base(url)
}

// SaveImage prüft Endung, erkannten Inhaltstyp und Größe, bevor etwas geschrieben wird.
// Der Dateiname lautet screenshot-<unix-millis><ext>.
func (s *LocalStore) SaveImage(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !slices.Contains(allowedExtensions, ext) {
		return "", ErrUnsupportedImage
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("fehler beim Lesen des Uploads: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !slices.ContainsFunc(allowedMIMETypes, mtype.Is) {
		slog.WarnContext(ctx, "Upload mit unerlaubtem Inhaltstyp abgelehnt", slog.String("mime", mtype.String()), slog.String("ext", ext))
		return "", ErrUnsupportedImage
	}

	// Ein Byte mehr als erlaubt lesen, um Überschreitungen zu erkennen.
	content := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxScreenshotSize+1)

	f, name, err := s.create(ext)
	if err != nil {
		return "", err
	}
	written, err := io.Copy(f, content)
	closeErr := f.Close()
	if err == nil && written > MaxScreenshotSize {
		err = ErrFileTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(filepath.Join(s.dir, name)); rmErr != nil {
			slog.ErrorContext(ctx, "Fehler beim Entfernen eines unvollständigen Uploads", slog.Any("error", rmErr), slog.String("file", name))
		}
		return "", err
	}

	slog.DebugContext(ctx, "Screenshot gespeichert", slog.String("file", name), slog.Int64("bytes", written))
	return name, nil
}

func (s *LocalStore) create(ext string) (*os.File, string, error) {
	millis := s.now().UnixMilli()
	for attempt := 0; attempt < 100; attempt++ {
		name := fmt.Sprintf("%s-%d%s", FieldName, millis+int64(attempt), ext)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("fehler beim Anlegen der Datei: %w", err)
		}
	}
	return nil, "", fmt.Errorf("kein freier Dateiname für Screenshot gefunden")
}

// Remove löscht eine Datei. Namen mit Pfadanteilen werden abgelehnt.
func (s *LocalStore) Remove(_ context.Context, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("ungültiger Dateiname '%s': %w", name, models.ErrInvalidArgument)
	}
	return os.Remove(filepath.Join(s.dir, name))
}

// fileOnlyFS liefert nur reguläre Dateien aus. Verzeichnisse gelten als nicht vorhanden,
// damit http.FileServer keine Listings erzeugt.
type fileOnlyFS struct {
	fs http.FileSystem
}

// FileSystem stellt das Upload-Verzeichnis für http.FileServer bereit.
func FileSystem(dir string) http.FileSystem {
	return fileOnlyFS{fs: http.Dir(dir)}
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
