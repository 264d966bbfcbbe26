package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/services/ingest"
	"jlpt-listening/pkg/apperror"
	"jlpt-listening/pkg/apperror/status"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v3"
)

var allowedExt = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".pdf":  "application/pdf",
	".json": "application/json",
}

// Uploader is the subset of the S3 client used to keep uploaded transcripts.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// HandleUpload accepts a multipart transcript ("file" plus a "section" form
// value), keeps it under a content-addressed name and ingests it.
func (h *Handler) HandleUpload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil || fh == nil || fh.Size == 0 {
		return apperror.BadRequest(config.ModuleIngest, c, status.MissingParams, "file is required")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidParams, "file must be .txt, .pdf or .json")
	}
	section, err := strconv.Atoi(c.FormValue("section"))
	if err != nil || !question.IsValidSection(section) {
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidSection, "section must be 1, 2 or 3")
	}

	file, err := fh.Open()
	if err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidParams, "cannot open file")
	}
	defer file.Close()

	var stored string
	if h.uploads != nil && config.Cfg.S3.Bucket != "" {
		stored, err = h.storeToS3(c.Context(), file, ext, contentType)
	} else {
		stored, err = storeToLocal(file, ext)
	}
	if err != nil {
		return apperror.InternalError(config.ModuleIngest, c, status.New(status.StorageFailed, err))
	}

	return h.run(c, ingest.Request{Path: stored, Section: section, Force: isTrue(c.FormValue("force"))})
}

func storeToLocal(r io.Reader, ext string) (string, error) {
	baseDir := config.Cfg.Ingest.UploadDir
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}
	tmp, err := os.CreateTemp(baseDir, "upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	finalPath := filepath.Join(baseDir, hex.EncodeToString(hasher.Sum(nil))+ext)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}
	return finalPath, nil
}

func (h *Handler) storeToS3(ctx context.Context, r io.Reader, ext, contentType string) (string, error) {
	tmp, err := os.CreateTemp("", "s3-upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("tempfile: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		return "", fmt.Errorf("stream copy: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek: %w", err)
	}

	bucket := config.Cfg.S3.Bucket
	key := fmt.Sprintf("transcripts/%s%s", hex.EncodeToString(hasher.Sum(nil)), ext)
	_, err = h.uploads.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        tmp,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
