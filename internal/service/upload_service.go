package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipebox/internal/domain"
)

// Presigner hands out direct-to-bucket upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PublicURL(key string) string
}

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	ImageURL  string `json:"imageUrl"`
	Key       string `json:"key"`
}

type UploadService struct {
	store Presigner
	log   *zap.Logger
	now   func() time.Time
}

func NewUploadService(store Presigner, l *zap.Logger) *UploadService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UploadService{store: store, log: l, now: time.Now}
}

func (s *UploadService) PresignImage(ctx context.Context, uid, contentType string) (*UploadTicket, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExt[ct]
	if !ok {
		return nil, domain.Validation("unsupported content type %q", contentType)
	}
	key := fmt.Sprintf("recipes/%s/%s%s", s.now().UTC().Format("2006/01/02"), uuid.NewString(), ext)
	u, err := s.store.PresignPut(ctx, key, ct)
	if err != nil {
		return nil, domain.Internal("presign upload failed", err)
	}
	s.log.Debug("image upload presigned", zap.String("uid", uid), zap.String("key", key))
	return &UploadTicket{UploadURL: u, ImageURL: s.store.PublicURL(key), Key: key}, nil
}
