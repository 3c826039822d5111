package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docgate/docgate/internal/document"
)

// SnapshotStore archives collection snapshots to a MinIO bucket. Snapshots
// are taken through the privileged repository channel, so the caller is
// responsible for restricting access to admins.
type SnapshotStore struct {
	client *minio.Client
	bucket string
}

// NewSnapshotStore creates a MinIO-backed snapshot store and ensures the bucket exists.
func NewSnapshotStore(cfg *MinIOConfig) (*SnapshotStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &SnapshotStore{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// snapshotEnvelope is the JSON layout of an archived collection.
type snapshotEnvelope struct {
	Collection string               `json:"collection"`
	TakenAt    time.Time            `json:"takenAt"`
	Count      int                  `json:"count"`
	Documents  []*document.Document `json:"documents"`
}

// ExportCollection marshals the given documents as a JSON snapshot and
// uploads it under a timestamped key. It returns the object key.
func (s *SnapshotStore) ExportCollection(ctx context.Context, collection string, docs []*document.Document) (string, error) {
	env := snapshotEnvelope{
		Collection: collection,
		TakenAt:    time.Now().UTC(),
		Count:      len(docs),
		Documents:  docs,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("snapshot marshal: %w", err)
	}
	key := fmt.Sprintf("%s/%s.json", collection, env.TakenAt.Format("20060102T150405Z"))
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("snapshot upload: %w", err)
	}
	return key, nil
}

// OpenSnapshot returns a ReadCloser for a previously exported snapshot.
func (s *SnapshotStore) OpenSnapshot(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// stat so a missing key fails here rather than on first read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// PresignedSnapshotURL returns a presigned GET URL valid for the given duration.
func (s *SnapshotStore) PresignedSnapshotURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, reqParams)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
