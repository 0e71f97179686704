// Package storage keeps uploaded images on the local filesystem.  Every
// upload is decoded, normalised and re-encoded as JPEG under a random name;
// the database stores the returned relative path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

const (
	AvatarSide = 512
	ImageSide  = 1920
)

// Local writes images below Root and serves them below BaseURL.
type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) *Local {
	return &Local{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// SaveAvatar fits the image into AvatarSide×AvatarSide and stores it under
// avatars/.
func (l *Local) SaveAvatar(ctx context.Context, r io.Reader) (string, error) {
	return l.save(ctx, "avatars", r, AvatarSide)
}

// SaveImage stores a tour, banner or region image under folder, scaled down
// to at most ImageSide on the longer edge.
func (l *Local) SaveImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	return l.save(ctx, folder, r, ImageSide)
}

func (l *Local) save(ctx context.Context, folder string, r io.Reader, side int) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img = imaging.Fit(img, side, side, imaging.Lanczos)

	rel := path.Join(folder, uuid.NewString()+".jpg")
	full := filepath.Join(l.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", folder, err)
	}
	if err := imaging.Save(img, full, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return rel, nil
}

// URL returns the public address of a stored relative path.  Absolute
// URLs are returned unchanged.
func (l *Local) URL(rel string) string {
	if rel == "" || strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return l.BaseURL + "/" + strings.TrimPrefix(rel, "/")
}
