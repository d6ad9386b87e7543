// Package blob stores listing images in a Cloud Storage bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/pauljones0/bizdir/internal/models"
	"github.com/pauljones0/bizdir/internal/util"
)

const publicHost = "https://storage.googleapis.com"

// objectStore is the part of the bucket API Store needs; tests replace it.
type objectStore interface {
	Write(ctx context.Context, name, contentType string, data []byte) error
	Delete(ctx context.Context, name string) error
}

type Store struct {
	bucket  string
	objects objectStore
	now     func() time.Time
}

// New opens the bucket. opts are passed to the storage client (e.g. option.WithEndpoint for the emulator).
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &Store{
		bucket:  bucket,
		objects: &gcsObjects{client: client, bucket: client.Bucket(bucket)},
		now:     time.Now,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if g, ok := s.objects.(*gcsObjects); ok {
		return g.client.Close()
	}
	return nil
}

// ObjectName returns the path an upload by uid is stored at.
func ObjectName(uid, filename string, at time.Time) string {
	return "listings/" + uid + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + util.SanitizeFilename(filename)
}

// PublicURL returns the public download URL of an object.
func (s *Store) PublicURL(name string) string {
	return publicHost + "/" + s.bucket + "/" + (&url.URL{Path: name}).EscapedPath()
}

// Upload stores img under the uid's folder and returns its public URL.
func (s *Store) Upload(ctx context.Context, uid string, img models.ImageUpload) (string, error) {
	name := ObjectName(uid, img.Filename, s.now())
	if err := s.objects.Write(ctx, name, img.ContentType, img.Data); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return s.PublicURL(name), nil
}

// UploadAll uploads every image concurrently and returns their URLs in input order.
// The first failure is returned; images that did upload are left in place.
func (s *Store) UploadAll(ctx context.Context, uid string, imgs []models.ImageUpload) ([]string, error) {
	urls := make([]string, len(imgs))
	var g errgroup.Group
	for i, img := range imgs {
		g.Go(func() error {
			u, err := s.Upload(ctx, uid, img)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// DeleteByURL deletes the object a stored URL refers to. A missing object is not an error.
func (s *Store) DeleteByURL(ctx context.Context, rawURL string) error {
	name, err := s.objectNameFromURL(rawURL)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// objectNameFromURL accepts both public URLs and Firebase download URLs
// (".../o/<escaped name>?alt=media").
func (s *Store) objectNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", rawURL, err)
	}
	path := u.Path
	if i := strings.Index(path, "/o/"); i >= 0 {
		return url.PathUnescape(path[i+len("/o/"):])
	}
	prefix := "/" + s.bucket + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("image url %q is not in bucket %s", rawURL, s.bucket)
	}
	return strings.TrimPrefix(path, prefix), nil
}

type gcsObjects struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func (g *gcsObjects) Write(ctx context.Context, name, contentType string, data []byte) error {
	w := g.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *gcsObjects) Delete(ctx context.Context, name string) error {
	return g.bucket.Object(name).Delete(ctx)
}
