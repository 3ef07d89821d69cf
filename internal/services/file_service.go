// internal/services/file_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// ===============================
// TYPES
// ===============================

// FileUploadRequest carries an avatar image upload.
type FileUploadRequest struct {
	File        io.Reader
	Filename    string
	ContentType string
	Size        int64
	ChildID     int64
}

// FileUploadResult is the stored location of an uploaded file.
type FileUploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// FileServiceConfig controls upload limits and processing.
type FileServiceConfig struct {
	MaxImageSize      int64
	AllowedImageTypes []string
	UploadTimeout     time.Duration
	Quality           int
}

// DefaultFileConfig returns sensible upload defaults.
func DefaultFileConfig() *FileServiceConfig {
	return &FileServiceConfig{
		MaxImageSize: 5 * 1024 * 1024, // 5MB
		AllowedImageTypes: []string{
			"image/jpeg", "image/jpg", "image/png",
			"image/gif", "image/webp",
		},
		UploadTimeout: 2 * time.Minute,
		Quality:       85,
	}
}

// fileService implements FileService over Cloudinary. Only avatar
// images are handled; children do not upload documents.
type fileService struct {
	cloudinary *cloudinary.Cloudinary
	config     *FileServiceConfig
	logger     *zap.Logger
}

// NewFileService creates a new instance of FileService.
func NewFileService(cld *cloudinary.Cloudinary, config *FileServiceConfig, logger *zap.Logger) FileService {
	if config == nil {
		config = DefaultFileConfig()
	}
	return &fileService{
		cloudinary: cld,
		config:     config,
		logger:     logger,
	}
}

// ===============================
// UPLOAD OPERATIONS
// ===============================

// UploadAvatar uploads and square-crops a child's avatar image.
func (s *fileService) UploadAvatar(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error) {
	if err := s.validateImageUpload(req); err != nil {
		return nil, NewValidationError("image validation failed", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:         fmt.Sprintf("avatars/child_%d", req.ChildID),
		ResourceType:   "image",
		Transformation: fmt.Sprintf("q_%d/c_fill,w_256,h_256,g_face", s.config.Quality),
		UseFilename:    BoolPtr(false),
		UniqueFilename: BoolPtr(true),
		Tags:           []string{"allowancehub", "avatar"},
	}

	result, err := s.cloudinary.Upload.Upload(uploadCtx, req.File, uploadParams)
	if err != nil {
		s.logger.Error("Failed to upload avatar to Cloudinary",
			zap.Error(err),
			zap.Int64("child_id", req.ChildID),
			zap.String("filename", req.Filename),
		)
		return nil, NewInternalError("failed to upload avatar")
	}

	s.logger.Info("Avatar uploaded",
		zap.Int64("child_id", req.ChildID),
		zap.String("public_id", result.PublicID),
		zap.Int("bytes", result.Bytes),
	)

	return &FileUploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Size:     int64(result.Bytes),
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
	}, nil
}

// DeleteFile removes a previously uploaded file by its public ID.
func (s *fileService) DeleteFile(ctx context.Context, publicID string) error {
	if publicID == "" {
		return NewValidationError("public ID is required", nil)
	}

	deleteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.cloudinary.Upload.Destroy(deleteCtx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		s.logger.Error("Failed to delete file from Cloudinary",
			zap.Error(err),
			zap.String("public_id", publicID),
		)
		return NewInternalError("failed to delete file")
	}

	if result.Result != "ok" && result.Result != "not found" {
		return NewInternalError(fmt.Sprintf("unexpected delete result: %s", result.Result))
	}

	return nil
}

// ===============================
// VALIDATION
// ===============================

func (s *fileService) validateImageUpload(req *FileUploadRequest) error {
	if req.File == nil {
		return fmt.Errorf("no file provided")
	}
	if req.Size > s.config.MaxImageSize {
		return fmt.Errorf("image exceeds maximum size of %d bytes", s.config.MaxImageSize)
	}
	if !s.isAllowedImageType(req.ContentType) {
		return fmt.Errorf("content type %s is not allowed", req.ContentType)
	}
	return s.validateFilename(req.Filename)
}

func (s *fileService) isAllowedImageType(contentType string) bool {
	for _, allowed := range s.config.AllowedImageTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func (s *fileService) validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("filename must not contain path separators")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return nil
	default:
		return fmt.Errorf("file extension %s is not allowed", ext)
	}
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}
