package replica

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Replicator mirrors finished downloads into a bucket. Object names follow
// the local layout relative to the event directory, e.g.
// "39c3/releases/opening event.mp4".
type Replicator struct {
	client Client
	bucket string
	log    *zap.Logger
}

// NewReplicator creates a Replicator on top of an existing client.
func NewReplicator(client Client, bucket string, log *zap.Logger) *Replicator {
	return &Replicator{client: client, bucket: bucket, log: log}
}

// EnsureBucket creates the target bucket if it does not exist yet.
func (r *Replicator) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", r.bucket, err)
	}
	if exists {
		return nil
	}
	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
	}
	r.log.Info("created replica bucket", zap.String("bucket", r.bucket))
	return nil
}

// Store uploads a local file under the given object name.
func (r *Replicator) Store(ctx context.Context, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	contentType := contentTypeFor(objectName)
	_, err = r.client.PutObject(ctx, r.bucket, objectName, f, info.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to replicate %s: %w", objectName, err)
	}

	r.log.Debug("replicated object",
		zap.String("object", objectName),
		zap.Int64("size", info.Size()))
	return nil
}

// Remove deletes an object, mirroring a local deletion.
func (r *Replicator) Remove(ctx context.Context, objectName string) error {
	err := r.client.RemoveObject(ctx, r.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove replica of %s: %w", objectName, err)
	}
	return nil
}

func contentTypeFor(objectName string) string {
	switch path.Ext(objectName) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
