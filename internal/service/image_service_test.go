package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "test.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "test.jpg"
	}

	return buf.Bytes(), filename
}

func TestValidateAndDecode_ValidJPEG(t *testing.T) {
	svc := NewImageService(nil)
	data, filename := createTestImage(100, 100, "jpeg")

	_, err := svc.validateAndDecode(data, filename)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateAndDecode_ValidPNG(t *testing.T) {
	svc := NewImageService(nil)
	data, filename := createTestImage(100, 100, "png")

	_, err := svc.validateAndDecode(data, filename)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateAndDecode_TooLarge(t *testing.T) {
	svc := NewImageService(nil)
	data := make([]byte, MaxImageSize+1)

	_, err := svc.validateAndDecode(data, "test.jpg")
	if err != ErrImageTooLarge {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestValidateAndDecode_InvalidFormat(t *testing.T) {
	svc := NewImageService(nil)
	data, _ := createTestImage(100, 100, "jpeg")

	_, err := svc.validateAndDecode(data, "test.bmp")
	if err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestValidateAndDecode_TooSmall(t *testing.T) {
	svc := NewImageService(nil)
	data, filename := createTestImage(30, 30, "jpeg")

	_, err := svc.validateAndDecode(data, filename)
	if err != ErrImageTooSmall {
		t.Errorf("expected ErrImageTooSmall, got %v", err)
	}
}

func TestValidateAndDecode_InvalidData(t *testing.T) {
	svc := NewImageService(nil)

	_, err := svc.validateAndDecode([]byte("not an image"), "test.jpg")
	if err != ErrInvalidImageData {
		t.Errorf("expected ErrInvalidImageData, got %v", err)
	}
}

func TestParseImageKind(t *testing.T) {
	kind, err := ParseImageKind("Background")
	require.NoError(t, err)
	assert.Equal(t, ImageKindBackground, kind)

	_, err = ParseImageKind("banner")
	assert.ErrorIs(t, err, ErrUnknownImageKind)
}

func TestObjectPath(t *testing.T) {
	userID := "3f2b8c1e-0000-4000-8000-000000000001"
	encoded := base64.URLEncoding.EncodeToString([]byte(userID))

	assert.Equal(t, "profileImages/profile_"+encoded+".png", ObjectPath(ImageKindProfile, userID))
	assert.Equal(t, "backgroundImages/background_"+encoded+".png", ObjectPath(ImageKindBackground, userID))
	assert.NotContains(t, strings.TrimPrefix(ObjectPath(ImageKindProfile, userID), "profileImages/"), "/")
}

func TestUpload_ProfileIsSquarePNG(t *testing.T) {
	blobs := testutil.NewMockBlobRepository()
	svc := NewImageService(blobs)
	data, filename := createTestImage(800, 600, "jpeg")

	url, err := svc.Upload(context.Background(), "u-alice", ImageKindProfile, data, filename)
	require.NoError(t, err)

	path := ObjectPath(ImageKindProfile, "u-alice")
	assert.Equal(t, blobs.PublicURL(path), url)

	obj, ok := blobs.Object(path)
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)

	stored, format, err := image.Decode(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, ProfileImageSize, stored.Bounds().Dx())
	assert.Equal(t, ProfileImageSize, stored.Bounds().Dy())
}

func TestUpload_BackgroundKeepsAspectRatio(t *testing.T) {
	blobs := testutil.NewMockBlobRepository()
	svc := NewImageService(blobs)
	data, filename := createTestImage(2400, 600, "png")

	_, err := svc.Upload(context.Background(), "u-alice", ImageKindBackground, data, filename)
	require.NoError(t, err)

	obj, ok := blobs.Object(ObjectPath(ImageKindBackground, "u-alice"))
	require.True(t, ok)
	cfg, err := png.DecodeConfig(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	assert.Equal(t, BackgroundImageWidth, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestUpload_ReplacesPreviousImage(t *testing.T) {
	blobs := testutil.NewMockBlobRepository()
	svc := NewImageService(blobs)
	var overwrites []bool
	blobs.UploadFn = func(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error) {
		overwrites = append(overwrites, overwrite)
		return blobs.PublicURL(objectPath), nil
	}
	data, filename := createTestImage(100, 100, "png")

	first, err := svc.Upload(context.Background(), "u-alice", ImageKindProfile, data, filename)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), "u-alice", ImageKindProfile, data, filename)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []bool{true, true}, overwrites)
}

func TestUpload_Errors(t *testing.T) {
	data, filename := createTestImage(100, 100, "png")

	_, err := NewImageService(nil).Upload(context.Background(), "u-alice", ImageKindProfile, data, filename)
	assert.ErrorIs(t, err, ErrImageStorageNotConfigured)

	blobs := testutil.NewMockBlobRepository()
	storageErr := errors.New("bucket unavailable")
	blobs.UploadFn = func(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error) {
		return "", storageErr
	}
	_, err = NewImageService(blobs).Upload(context.Background(), "u-alice", ImageKindProfile, data, filename)
	assert.ErrorIs(t, err, storageErr)
}
