package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/google/uuid"
)

var ErrStorageUnavailable = errors.New("object storage not configured")

const (
	// MaxAttachmentBytes bounds a single attachment blob.
	MaxAttachmentBytes = 25 * 1024 * 1024

	attachmentURLPrefix = "/api/media/attachments/"
	attachmentKeyPrefix = "chat"
)

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename reduces a client-supplied filename to a safe object key
// segment.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	// Keep only the final path element of whatever the client sent.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	name = filenameUnsafe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	if name == "" {
		return "file"
	}
	return name
}

// AttachmentKey builds the object key for one attachment: namespaced by
// sender and conversation, filename prefixed with a unique token so repeated
// uploads of the same file never collide.
func AttachmentKey(senderID, conversationID uint, filename string) string {
	return fmt.Sprintf("%s/%d/%d/%s_%s",
		attachmentKeyPrefix, senderID, conversationID, uuid.NewString(), SanitizeFilename(filename))
}

// AttachmentStore persists message attachments in object storage.
type AttachmentStore struct {
	s3 *S3Storage
}

func NewAttachmentStore(s3 *S3Storage) *AttachmentStore {
	return &AttachmentStore{s3: s3}
}

// Upload stores one attachment and returns its descriptor. Image uploads
// also get a best-effort thumbnail object next to the original.
func (a *AttachmentStore) Upload(ctx context.Context, senderID, conversationID uint, name, contentType string, size int64, body io.Reader) (models.Attachment, error) {
	if a == nil || a.s3 == nil {
		return models.Attachment{}, ErrStorageUnavailable
	}
	if size > MaxAttachmentBytes {
		return models.Attachment{}, ErrTooLarge
	}

	key := AttachmentKey(senderID, conversationID, name)
	att := models.Attachment{
		Name: SanitizeFilename(name),
		URL:  attachmentURLPrefix + key,
		Type: contentType,
		Size: size,
	}

	if !strings.HasPrefix(contentType, "image/") {
		if _, err := a.s3.PutObject(ctx, key, body, size, contentType); err != nil {
			return models.Attachment{}, err
		}
		return att, nil
	}

	// Images are buffered so the same bytes can feed both the original
	// object and the thumbnail pipeline.
	data, err := io.ReadAll(io.LimitReader(body, MaxAttachmentBytes+1))
	if err != nil {
		return models.Attachment{}, err
	}
	if int64(len(data)) > MaxAttachmentBytes {
		return models.Attachment{}, ErrTooLarge
	}
	if _, err := a.s3.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return models.Attachment{}, err
	}
	att.Size = int64(len(data))

	thumb, thumbType, thumbSize, err := MakeThumbnail(bytes.NewReader(data), DefaultThumbnailOptions())
	if err != nil {
		// Thumbnail is cosmetic; the attachment stands without it.
		log.Printf("storage: thumbnail for %s skipped: %v", key, err)
		return att, nil
	}
	thumbKey := key + ".thumb.jpg"
	if _, err := a.s3.PutObject(ctx, thumbKey, bytes.NewReader(thumb), thumbSize, thumbType); err != nil {
		log.Printf("storage: thumbnail upload for %s failed: %v", key, err)
		return att, nil
	}
	att.ThumbnailURL = attachmentURLPrefix + thumbKey
	return att, nil
}

// Open fetches a stored attachment for download. The key is validated
// against traversal before it reaches the bucket.
func (a *AttachmentStore) Open(ctx context.Context, key string) (io.ReadCloser, ObjectStat, error) {
	if a == nil || a.s3 == nil {
		return nil, ObjectStat{}, ErrStorageUnavailable
	}
	safe, err := SafeJoinObjectKey("", key)
	if err != nil {
		return nil, ObjectStat{}, err
	}
	if !strings.HasPrefix(safe, attachmentKeyPrefix+"/") {
		return nil, ObjectStat{}, errors.New("invalid key")
	}
	obj, stat, err := a.s3.GetObject(ctx, safe)
	if err != nil {
		return nil, ObjectStat{}, err
	}
	return obj, stat, nil
}

// ParseAttachmentKey extracts the sender and conversation ids an attachment
// key was namespaced with, so download access can be checked against the
// conversation's participants.
func ParseAttachmentKey(key string) (senderID, conversationID uint, err error) {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	if len(parts) < 4 || parts[0] != attachmentKeyPrefix {
		return 0, 0, errors.New("malformed attachment key")
	}
	var s, c uint64
	if _, err := fmt.Sscanf(parts[1], "%d", &s); err != nil {
		return 0, 0, errors.New("malformed attachment key")
	}
	if _, err := fmt.Sscanf(parts[2], "%d", &c); err != nil {
		return 0, 0, errors.New("malformed attachment key")
	}
	return uint(s), uint(c), nil
}
