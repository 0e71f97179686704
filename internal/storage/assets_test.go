package storage

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func pngBytes(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &buf
}

func TestSaveAvatarFitsAndStoresJPEG(t *testing.T) {
	root := t.TempDir()
	st := NewLocal(root, "/media/")

	rel, err := st.SaveAvatar(context.Background(), pngBytes(t, 1200, 800))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(rel, "avatars/") || !strings.HasSuffix(rel, ".jpg") {
		t.Fatalf("unexpected path %q", rel)
	}
	img, err := imaging.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if b := img.Bounds(); b.Dx() != AvatarSide || b.Dy() > AvatarSide {
		t.Fatalf("avatar not fitted: %v", b)
	}
	if got := st.URL(rel); got != "/media/"+rel {
		t.Fatalf("url = %q", got)
	}
}

func TestSaveRejectsNonImage(t *testing.T) {
	st := NewLocal(t.TempDir(), "")
	_, err := st.SaveImage(context.Background(), "tours", strings.NewReader("plain text"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}
