package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
)

// Uploader pushes message attachments to a Cloud Storage bucket and hands
// back the reference that gets embedded in the message document. Upload
// failures carry their own error code so the send flow can distinguish a
// broken attachment from a broken message store.
type Uploader struct {
	client     *storage.Client
	bucketName string
}

type UploadInput struct {
	FileName        string
	MimeType        string
	DurationSeconds float64
}

func NewUploader(ctx context.Context, bucketName, credentialsPath string) (*Uploader, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &Uploader{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Upload streams the attachment into the bucket under a collision-free
// name and returns the media reference for the message document.
func (u *Uploader) Upload(ctx context.Context, file io.Reader, input UploadInput) (*entity.MediaRef, error) {
	objectName := fmt.Sprintf("attachments/%s/%s-%s%s",
		folderFor(input.MimeType),
		uuid.New().String(),
		time.Now().Format("20060102150405"),
		extensionFor(input.MimeType),
	)

	obj := u.client.Bucket(u.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = input.MimeType
	wc.CacheControl = "public, max-age=86400"

	size, err := io.Copy(wc, file)
	if err != nil {
		wc.Close()
		return nil, uploadFailed(err)
	}
	if err := wc.Close(); err != nil {
		return nil, uploadFailed(err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return nil, uploadFailed(err)
	}

	return &entity.MediaRef{
		URL:             fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectName),
		FileName:        input.FileName,
		FileSize:        size,
		MimeType:        input.MimeType,
		DurationSeconds: input.DurationSeconds,
	}, nil
}

// Delete removes an uploaded attachment by its public URL. Used when a
// send fails after the upload already succeeded.
func (u *Uploader) Delete(ctx context.Context, fileURL string) error {
	const prefix = "https://storage.googleapis.com/"
	if !strings.HasPrefix(fileURL, prefix) {
		return errors.BadRequest("invalid storage URL format", nil)
	}

	path := fileURL[len(prefix):]
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] != u.bucketName {
		return errors.BadRequest("invalid storage URL format or bucket mismatch", nil)
	}

	if err := u.client.Bucket(u.bucketName).Object(parts[1]).Delete(ctx); err != nil {
		return uploadFailed(err)
	}
	return nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}

func uploadFailed(err error) error {
	return errors.New("MEDIA_UPLOAD_FAILED", "attachment upload failed", 502, err)
}

func folderFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "images"
	case strings.HasPrefix(mimeType, "video/"):
		return "videos"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	}
	return "files"
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "application/pdf":
		return ".pdf"
	}
	return ".bin"
}
