package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"github.com/keepsite/apiserver/internal/storage"
	"github.com/keepsite/apiserver/types"
	"github.com/rs/zerolog"
)

// AttachmentRepository defines persistence operations for attachment
// metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error)
	Get(ctx context.Context, id int) (types.Attachment, error)
	ListByPage(ctx context.Context, pageID int) ([]types.Attachment, error)
	Delete(ctx context.Context, id int) error
}

// AttachmentService stores attachment bytes in object storage and
// their metadata in the attachment repository.
type AttachmentService struct {
	repo    AttachmentRepository
	pages   PageRepository
	objects storage.ObjectStorage
	logger  zerolog.Logger
}

func NewAttachmentService(
	repo AttachmentRepository,
	pages PageRepository,
	objects storage.ObjectStorage,
	logger zerolog.Logger,
) *AttachmentService {
	return &AttachmentService{
		repo:    repo,
		pages:   pages,
		objects: objects,
		logger:  logger,
	}
}

// Upload stores the object first and the metadata row second; if the
// row insert fails the orphaned object is removed best-effort.
func (s *AttachmentService) Upload(
	ctx context.Context,
	pageID int,
	filename, contentType string,
	data []byte,
) (types.Attachment, error) {
	if _, err := s.pages.Get(ctx, pageID); err != nil {
		return types.Attachment{}, err
	}

	key := newObjectKey(pageID, filename)
	size := int64(len(data))
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), size, contentType); err != nil {
		return types.Attachment{}, err
	}

	attachment, err := s.repo.Create(ctx, types.Attachment{
		PageID:      pageID,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        size,
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("remove orphaned attachment object")
		}
		return types.Attachment{}, err
	}
	return attachment, nil
}

// ListByPage returns the attachment metadata for a page. The page must
// exist so a bogus id yields 404 rather than an empty list.
func (s *AttachmentService) ListByPage(ctx context.Context, pageID int) ([]types.Attachment, error) {
	if _, err := s.pages.Get(ctx, pageID); err != nil {
		return nil, err
	}
	return s.repo.ListByPage(ctx, pageID)
}

// Open returns the metadata and a reader over the stored bytes. The
// caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, id int) (types.Attachment, io.ReadCloser, error) {
	attachment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	reader, err := s.objects.Get(ctx, attachment.ObjectKey)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	return attachment, reader, nil
}

// Delete removes the object, then the metadata row.
func (s *AttachmentService) Delete(ctx context.Context, id int) error {
	attachment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, attachment.ObjectKey); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func newObjectKey(pageID int, filename string) string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("pages/%d/%s", pageID, filename)
	}
	return fmt.Sprintf("pages/%d/%s%s", pageID, hex.EncodeToString(buf[:]), path.Ext(filename))
}
