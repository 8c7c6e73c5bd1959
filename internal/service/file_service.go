package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type fileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type urlSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (ownerID, relPath string, expiresAt time.Time, err error)
}

// FileKind selects the folder and accepted extensions of an upload.
type FileKind string

const (
	FileEvidence FileKind = "achievements/evidence"
	FileDocument FileKind = "permission_requests/documents"
	FileCircular FileKind = "events/circulars"
)

func (k FileKind) extensions() []string {
	if k == FileCircular {
		return models.ImageExtensions
	}
	return models.DocumentExtensions
}

// FileUpload carries upload metadata and stream reader.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// FileLink is a signed, expiring download location.
type FileLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileDownload bundles file reader metadata for streaming.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// FileServiceConfig holds validation parameters.
type FileServiceConfig struct {
	MaxFileSize int64
	APIPrefix   string
}

// FileService stores uploaded evidence, supporting documents and circulars and
// hands out signed links to them.
type FileService struct {
	storage fileStorage
	signer  urlSigner
	logger  *zap.Logger
	cfg     FileServiceConfig
}

// NewFileService constructs the service with defaults.
func NewFileService(storage fileStorage, signer urlSigner, logger *zap.Logger, cfg FileServiceConfig) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &FileService{storage: storage, signer: signer, logger: logger, cfg: cfg}
}

// Store validates and persists an upload, returning its relative path.
func (s *FileService) Store(kind FileKind, upload *FileUpload) (string, error) {
	if upload == nil || upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if !models.HasExtension(upload.Filename, kind.extensions()) {
		return "", appErrors.Clone(appErrors.ErrValidation, "file type not allowed; accepted: "+strings.Join(kind.extensions(), ", "))
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(s.generateFilename(kind, upload.Filename), upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist file")
	}
	return path, nil
}

// Link signs a download URL binding ownerID to path.
func (s *FileService) Link(ownerID string, path *string) (*FileLink, error) {
	if path == nil || *path == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no file attached")
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	token, expiresAt, err := s.signer.Generate(ownerID, *path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &FileLink{
		URL:       fmt.Sprintf("%s/files/download?token=%s", base, url.QueryEscape(token)),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a signed token and opens the file it names.
func (s *FileService) Open(token string) (*FileDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	mimeType, err := sniff(file)
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, err
	}
	return &FileDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	}, nil
}

// Remove deletes a stored file, logging rather than failing when the file is gone.
func (s *FileService) Remove(path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := s.storage.Delete(*path); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("path", *path), zap.Error(err))
	}
}

func sniff(file *os.File) (string, error) {
	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset file")
	}
	if mimeType := extensionMime(file.Name()); mimeType != "" {
		return mimeType, nil
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *FileService) generateFilename(kind FileKind, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	stem := sanitize(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("%s/%s_%d_%s%s", kind, stem, time.Now().Unix(), randomSuffix(), ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func extensionMime(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
