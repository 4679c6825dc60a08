package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// SubmissionKey строит ключ объекта для файла работы: случайный суффикс
// исключает перезапись чужого объекта при повторной сдаче.
func SubmissionKey(competitionID, registrationID int, filename string) (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate object key suffix: %w", err)
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("submissions/%d/%d/%s%s", competitionID, registrationID, hex.EncodeToString(suffix), ext), nil
}
