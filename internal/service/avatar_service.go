package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"

	"stackit/internal/config"
	"stackit/internal/models"
	"stackit/internal/repository"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir         = "/tmp/stackit/uploads"
	DefaultAvatarMaxUploadMB = 5
	AvatarSize               = 256
	avatarJPEGQuality        = 85
	avatarWebPQuality        = 75
	// AvatarURLPrefix is where the server mounts the avatar directory.
	AvatarURLPrefix = "/uploads/avatars/"
)

type UploadAvatarInput struct {
	UserID  uint
	Content []byte
}

// AvatarService turns uploaded images into square avatar renditions.
type AvatarService struct {
	users              repository.UserRepository
	dir                string
	maxUploadSizeBytes int64
}

func NewAvatarService(users repository.UserRepository, cfg *config.Config) *AvatarService {
	uploadDir := DefaultUploadDir
	maxUploadSizeMB := DefaultAvatarMaxUploadMB
	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if cfg.AvatarMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.AvatarMaxUploadMB
		}
	}
	return &AvatarService{
		users:              users,
		dir:                filepath.Join(uploadDir, "avatars"),
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Dir is the directory the renditions are written to.
func (s *AvatarService) Dir() string {
	return s.dir
}

// Upload stores WebP and JPEG renditions of the image and points the user's
// avatar at the WebP one.
func (s *AvatarService) Upload(ctx context.Context, in UploadAvatarInput) (*models.User, error) {
	if len(in.Content) == 0 {
		return nil, fieldError("avatar", "No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, fieldError("avatar", fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	switch http.DetectContentType(in.Content) {
	case "image/jpeg", "image/png", "image/webp":
	default:
		return nil, fieldError("avatar", "Avatar must be a JPEG, PNG or WebP image")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fieldError("avatar", "Invalid image file")
	}
	avatar := resizeSquare(cropSquare(decoded), AvatarSize)

	webpBytes, err := encodeWebP(avatar, avatarWebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	jpegBytes, err := encodeJPEG(avatar, avatarJPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	base := avatarFileBase(in.UserID, in.Content)
	webpPath := filepath.Join(s.dir, base+".webp")
	jpegPath := filepath.Join(s.dir, base+".jpg")
	if err := writeBytesToFile(webpPath, webpBytes); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(jpegPath, jpegBytes); err != nil {
		_ = os.Remove(webpPath)
		return nil, models.NewInternalError(err)
	}

	if err := s.users.UpdateFields(ctx, in.UserID, map[string]any{"avatar": AvatarURLPrefix + base + ".webp"}); err != nil {
		_ = os.Remove(webpPath)
		_ = os.Remove(jpegPath)
		return nil, err
	}
	return s.users.GetByID(ctx, in.UserID)
}

// cropSquare cuts the largest centred square out of src.
func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeSquare(src image.Image, size int) image.Image {
	if src.Bounds().Dx() == size && src.Bounds().Dy() == size {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func avatarFileBase(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return fmt.Sprintf("%d-%s", userID, hex.EncodeToString(h.Sum(nil))[:16])
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
