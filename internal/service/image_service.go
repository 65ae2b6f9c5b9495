package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageSize         = 5 * 1024 * 1024 // 5MB
	MinImageWidth        = 50
	MinImageHeight       = 50
	ProfileImageSize     = 400
	BackgroundImageWidth = 1200
)

var (
	ErrImageTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat             = errors.New("invalid format. Supported: JPEG, PNG, GIF, WebP")
	ErrImageTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidImageData          = errors.New("invalid image data")
	ErrImageStorageNotConfigured = errors.New("image storage not configured")
	ErrUnknownImageKind          = errors.New("unknown image kind")
)

// AllowedExtensions lists the accepted upload file extensions
var AllowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageKind names the member image being replaced
type ImageKind string

const (
	ImageKindProfile    ImageKind = "profile"
	ImageKindBackground ImageKind = "background"
)

// ParseImageKind validates a kind taken from a URL segment
func ParseImageKind(s string) (ImageKind, error) {
	switch k := ImageKind(strings.ToLower(s)); k {
	case ImageKindProfile, ImageKindBackground:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImageKind, s)
}

// ObjectPath returns the storage path of a member image. Each member has one
// object per kind, replaced on every upload.
func ObjectPath(kind ImageKind, userID string) string {
	encoded := base64.URLEncoding.EncodeToString([]byte(userID))
	if kind == ImageKindBackground {
		return fmt.Sprintf("backgroundImages/background_%s.png", encoded)
	}
	return fmt.Sprintf("profileImages/profile_%s.png", encoded)
}

// ImageService handles image processing and storage
type ImageService struct {
	storage storage.BlobRepository
}

// NewImageService creates a new ImageService
func NewImageService(storage storage.BlobRepository) *ImageService {
	return &ImageService{storage: storage}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *ImageService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// validateAndDecode validates the image and returns the decoded image
func (s *ImageService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExtensions[ext] {
		return nil, ErrInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImageData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinImageWidth || bounds.Dy() < MinImageHeight {
		return nil, ErrImageTooSmall
	}

	return img, nil
}

// process crops profile images to a square and narrows wide backgrounds
func process(kind ImageKind, img image.Image) image.Image {
	if kind == ImageKindProfile {
		return imaging.Fill(img, ProfileImageSize, ProfileImageSize, imaging.Center, imaging.Lanczos)
	}
	if img.Bounds().Dx() > BackgroundImageWidth {
		return imaging.Resize(img, BackgroundImageWidth, 0, imaging.Lanczos)
	}
	return img
}

// Upload processes a member image, stores it as PNG over the member's
// previous one and returns its public URL
func (s *ImageService) Upload(ctx context.Context, userID string, kind ImageKind, data []byte, filename string) (string, error) {
	if !s.IsEnabled() {
		return "", ErrImageStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, process(kind, img), imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	url, err := s.storage.Upload(ctx, ObjectPath(kind, userID), bytes.NewReader(buf.Bytes()), "image/png", int64(buf.Len()), true)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s image: %w", kind, err)
	}
	return url, nil
}
