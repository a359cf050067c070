package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"estoque/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// FieldName is the multipart field holding the image.
const FieldName = "imagem"

// MaxFileSize is the largest accepted image.
const MaxFileSize = 2 << 20

// URLPrefix is where stored images are served from.
const URLPrefix = "/uploads"

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Upload errors. Their text is what API clients see.
var (
	ErrNoFile       = errors.New("Nenhum arquivo enviado ou tipo de arquivo inválido.")
	ErrTooManyFiles = errors.New("Envie apenas um arquivo no campo 'imagem'.")
	ErrInvalidType  = errors.New("Tipo de arquivo inválido. Apenas imagens são permitidas.")
	ErrTooLarge     = errors.New("Arquivo excede o limite de 2 MB.")
	ErrNotFound     = errors.New("file not found")
)

// Storage persists uploaded files.
type Storage interface {
	// Save stores r under name and returns the stored location.
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	// Open returns the stored file and its content type. ErrNotFound when absent.
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
	// Destination names where files go: a directory or a bucket.
	Destination() string
}

// Service validates and stores image uploads.
type Service struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new upload Service.
func NewService(storage Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Storage returns the backing storage.
func (s *Service) Storage() Storage {
	return s.storage
}

// Accept validates the single image in form and stores it. Nothing is
// written when validation fails.
func (s *Service) Accept(ctx context.Context, form *multipart.Form) (*models.UploadedImage, error) {
	if form == nil {
		return nil, ErrNoFile
	}
	for field, files := range form.File {
		if field != FieldName && len(files) > 0 {
			return nil, ErrTooManyFiles
		}
	}
	files := form.File[FieldName]
	switch {
	case len(files) == 0:
		return nil, ErrNoFile
	case len(files) > 1:
		return nil, ErrTooManyFiles
	}
	fh := files[0]

	declared, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || !allowedTypes[declared] {
		return nil, ErrInvalidType
	}
	if fh.Size > MaxFileSize {
		return nil, ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if !allowedTypes[detected.String()] {
		s.logger.Warn("upload rejected", "declared", declared, "detected", detected.String(), "filename", fh.Filename)
		return nil, ErrInvalidType
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), baseName(fh.Filename))
	location, err := s.storage.Save(ctx, name, declared, io.LimitReader(f, MaxFileSize+1), fh.Size)
	if err != nil {
		return nil, err
	}
	s.logger.Info("upload stored", "filename", name, "size", fh.Size, "mimetype", declared)

	return &models.UploadedImage{
		FieldName:    FieldName,
		OriginalName: fh.Filename,
		MimeType:     declared,
		Destination:  s.storage.Destination(),
		FileName:     name,
		Path:         location,
		Size:         fh.Size,
		URL:          URLPrefix + "/" + name,
	}, nil
}

// baseName strips any directory part a client put in the file name.
func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return "imagem"
	}
	return name
}

// ValidName reports whether name is a bare stored file name.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}
