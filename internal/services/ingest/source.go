package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"jlpt-listening/internal/core/question"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported transcript format")
	ErrEmptyContent      = errors.New("empty content")
)

// ObjectGetter is the subset of the S3 client used to fetch s3:// sources.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// FetchToLocalTemp copies a local path or an s3://bucket/key object into a
// temp file with the same extension and returns a cleanup function.
func FetchToLocalTemp(ctx context.Context, objects ObjectGetter, path string) (string, func(), error) {
	noop := func() {}
	ext := strings.ToLower(filepath.Ext(path))

	var src io.ReadCloser
	if strings.HasPrefix(path, "s3://") {
		if objects == nil {
			return "", noop, fmt.Errorf("s3 source %s: no object client configured", path)
		}
		u, err := url.Parse(path)
		if err != nil {
			return "", noop, err
		}
		out, err := objects.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.Host),
			Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
		})
		if err != nil {
			return "", noop, fmt.Errorf("get %s: %w", path, err)
		}
		src = out.Body
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", noop, err
		}
		src = f
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "transcript-*"+ext)
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, err
	}
	return tmp.Name(), cleanup, nil
}

// ExtractPages reads transcript text page by page. Plain text is a single page.
func ExtractPages(localPath string) ([]string, error) {
	var pages []string
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".pdf":
		var err error
		if pages, err = extractPDFPages(localPath); err != nil {
			return nil, err
		}
	case ".txt", ".md", "":
		b, err := os.ReadFile(localPath)
		if err != nil {
			return nil, err
		}
		pages = []string{string(b)}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(localPath))
	}

	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if clean := sanitizeUTF8Printable(p); clean != "" {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyContent
	}
	return out, nil
}

func extractPDFPages(localPath string) ([]string, error) {
	f, r, err := pdf.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// ReadSeed decodes a JSON array of ready-made questions and keeps the valid ones.
func ReadSeed(localPath string) ([]question.Question, error) {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	var raw []question.Question
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	out := make([]question.Question, 0, len(raw))
	for _, q := range raw {
		if q.Validate() == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

// sanitizeUTF8Printable drops BOMs, replacement runes and control characters
// other than common whitespace.
func sanitizeUTF8Printable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\uFEFF', r == unicode.ReplacementChar:
			continue
		case r == '\n', r == '\t', r == '\r':
		case !unicode.IsPrint(r) && !unicode.IsSpace(r):
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
