package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned when the sniffed content type is not allowed.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when the payload exceeds the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("empty file")
)

// StoredObject describes a persisted upload.
type StoredObject struct {
	ID          string
	Key         string
	ContentType string
	Size        int
	URL         string
}

// ReceiptStoreConfig configures ReceiptStore.
type ReceiptStoreConfig struct {
	PublicBaseURL string
	AllowedMIMEs  []string
	MaxBytes      int64
	MaxImageWidth int
}

// ReceiptStore persists payment receipts on local disk and hands out signed public URLs.
type ReceiptStore struct {
	files   *LocalStorage
	signer  *SignedURLSigner
	cfg     ReceiptStoreConfig
	now     func() time.Time
	allowed []string
}

// NewReceiptStore wires the store over a LocalStorage and signer.
func NewReceiptStore(files *LocalStorage, signer *SignedURLSigner, cfg ReceiptStoreConfig) *ReceiptStore {
	allowed := cfg.AllowedMIMEs
	if len(allowed) == 0 {
		allowed = []string{"image/jpeg", "image/png", "application/pdf"}
	}
	return &ReceiptStore{files: files, signer: signer, cfg: cfg, now: time.Now, allowed: allowed}
}

// Store validates, normalises and saves the upload.
func (s *ReceiptStore) Store(ctx context.Context, data []byte) (*StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if s.cfg.MaxBytes > 0 && int64(len(data)) > s.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), s.cfg.MaxBytes)
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), s.allowed...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}

	payload, err := s.downscale(data, mime)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s%s", s.now().UTC().Format("2006/01"), id, mime.Extension())
	if _, err := s.files.Save(key, payload); err != nil {
		return nil, err
	}

	token, _, err := s.signer.Sign(key)
	if err != nil {
		_ = s.files.Delete(key)
		return nil, fmt.Errorf("sign receipt url: %w", err)
	}

	return &StoredObject{
		ID:          id,
		Key:         key,
		ContentType: mime.String(),
		Size:        len(payload),
		URL:         s.cfg.PublicBaseURL + "/" + token,
	}, nil
}

// Remove deletes a stored receipt by key.
func (s *ReceiptStore) Remove(ctx context.Context, key string) error {
	return s.files.Delete(key)
}

// Resolve validates a public token and returns the stored key with its content type.
func (s *ReceiptStore) Resolve(token string) (string, string, error) {
	key, err := s.signer.Verify(token)
	if err != nil {
		return "", "", err
	}
	file, err := s.files.Open(key)
	if err != nil {
		return "", "", err
	}
	defer file.Close() //nolint:errcheck
	mime, err := mimetype.DetectReader(file)
	if err != nil {
		return "", "", fmt.Errorf("detect stored type: %w", err)
	}
	return key, mime.String(), nil
}

// ReadAll loads a stored object.
func (s *ReceiptStore) ReadAll(key string) ([]byte, error) {
	file, err := s.files.Open(key)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ReceiptStore) downscale(data []byte, mime *mimetype.MIME) ([]byte, error) {
	if s.cfg.MaxImageWidth <= 0 || !mime.Is("image/jpeg") && !mime.Is("image/png") {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", ErrUnsupportedType, err)
	}
	if img.Bounds().Dx() <= s.cfg.MaxImageWidth {
		return data, nil
	}
	resized := imaging.Resize(img, s.cfg.MaxImageWidth, 0, imaging.Lanczos)

	format := imaging.JPEG
	if mime.Is("image/png") {
		format = imaging.PNG
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
