package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ProofStorage persists a proof image and returns its public reference.
type ProofStorage interface {
	Save(ctx context.Context, bookingID uint, filename string, r io.Reader) (string, error)
}

// LocalProofStorage writes images under dir and serves them from baseURL.
type LocalProofStorage struct {
	dir     string
	baseURL string
}

func NewLocalProofStorage(dir, baseURL string) (*LocalProofStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalProofStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalProofStorage) Save(_ context.Context, bookingID uint, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("booking-%d-%s%s", bookingID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))

	dst := filepath.Join(s.dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close proof file: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// CloudinaryProofStorage uploads images to a Cloudinary folder per booking.
type CloudinaryProofStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryProofStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryProofStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryProofStorage{cld: cld, folder: folder}, nil
}

func (s *CloudinaryProofStorage) Save(ctx context.Context, bookingID uint, _ string, r io.Reader) (string, error) {
	overwrite := true
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       path.Join(s.folder, fmt.Sprint(bookingID)),
		PublicID:     uuid.NewString(),
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload proof: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
