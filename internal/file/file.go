package file

import (
	"bytes"
	"context"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader keeps durable audit copies of submitted evidence images. The
// resulting URLs are attached to the attempt record; uploads are best effort
// and never block or fail a verification.
type Uploader struct {
	cloud_name string
	api_key    string
	api_secret string
}

func New(cloud_name, api_key, api_secret string) *Uploader {
	return &Uploader{
		cloud_name: cloud_name,
		api_key:    api_key,
		api_secret: api_secret,
	}
}

func (f *Uploader) UploadImage(ctx context.Context, data []byte, publicID string) (string, error) {
	cld, err := cloudinary.NewFromParams(f.cloud_name, f.api_key, f.api_secret)
	if err != nil {
		return "", err
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: publicID,
		Folder:   "verifications",
	})
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
