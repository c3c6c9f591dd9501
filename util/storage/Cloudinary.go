package storage

import (
	"context"
	"io"

	"github.com/bwise1/clarity/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

// Cloudinary stores images attached to post drafts.
type Cloudinary struct {
	CLD    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary returns nil, nil when no cloud name is configured; image
// uploads are then unavailable.
func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	if cfg.CloudinaryCloudName == "" {
		return nil, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, errors.Wrap(err, "initializing cloudinary")
	}
	return &Cloudinary{CLD: cld, folder: cfg.CloudinaryFolder}, nil
}

// UploadImage uploads file and returns its https URL.
func (c *Cloudinary) UploadImage(ctx context.Context, file io.Reader, filename string) (string, error) {
	resp, err := c.CLD.Upload.Upload(ctx, file, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return "", errors.Wrapf(err, "uploading image %s", filename)
	}
	if resp.Error.Message != "" {
		return "", errors.Errorf("uploading image %s: %s", filename, resp.Error.Message)
	}
	return resp.SecureURL, nil
}
