package ingest

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"jlpt-listening/config"
)

var errForbiddenSource = errors.New("path must name an uploaded transcript or an object in the configured bucket")

// resolveSource maps a client supplied path onto something the server is
// willing to read: a file under the upload directory (a bare name returned by
// /ingest/upload is looked up there) or a key in the configured S3 bucket.
func resolveSource(path string) (string, error) {
	if strings.HasPrefix(path, "s3://") {
		u, err := url.Parse(path)
		if err != nil || config.Cfg.S3.Bucket == "" || u.Host != config.Cfg.S3.Bucket {
			return "", errForbiddenSource
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" || strings.Contains(key, "..") {
			return "", errForbiddenSource
		}
		return path, nil
	}
	if strings.Contains(path, "://") {
		return "", errForbiddenSource
	}

	dir := config.Cfg.Ingest.UploadDir
	if !strings.ContainsAny(path, `/\`) {
		path = filepath.Join(dir, path)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	target, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errForbiddenSource
	}
	return filepath.Join(dir, rel), nil
}
