package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/internal/services/ingest"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []ingest.Request
	err  error
	rows []ingest.Transcript
	done chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, req ingest.Request) (ingest.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.done != nil {
		defer close(f.done)
	}
	if f.err != nil {
		return ingest.Result{}, f.err
	}
	return ingest.Result{Questions: 2, IDs: []string{"section1_question_0", "section1_question_1"}}, nil
}

func (f *fakeRunner) Transcripts(context.Context) ([]ingest.Transcript, error) {
	return f.rows, f.err
}

func (f *fakeRunner) requests() []ingest.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingest.Request(nil), f.reqs...)
}

type fakeUploader struct {
	bucket, key string
	body        string
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	b, err := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, err
}

type envelope struct {
	Code      int             `json:"code"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
}

// withUploadDir points uploads at a temp dir and the S3 bucket at "jlpt".
func withUploadDir(t *testing.T) string {
	t.Helper()
	old := config.Cfg
	t.Cleanup(func() { config.Cfg = old })
	dir := t.TempDir()
	config.Cfg.Ingest.UploadDir = dir
	config.Cfg.S3.Bucket = "jlpt"
	return dir
}

func newApp(svc Runner, uploads Uploader) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, NewHandler(svc, uploads))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, contentType string, body io.Reader) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return resp.StatusCode, env
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, envelope) {
	return send(t, app, "POST", path, "application/json", strings.NewReader(body))
}

func TestHandleIngest_RejectsSourcesOutsideUploads(t *testing.T) {
	dir := withUploadDir(t)
	svc := &fakeRunner{}
	app := newApp(svc, nil)

	for _, path := range []string{
		"/etc/passwd",
		"../config.yaml",
		filepath.Join(dir, "..", "secrets.txt"),
		dir,
		"s3://other-bucket/x",
		"s3://jlpt/",
		"s3://jlpt/../x.txt",
		"file:///etc/passwd",
	} {
		code, env := postJSON(t, app, "/ingest", fmt.Sprintf(`{"path":%q,"section":1}`, path))
		assert.Equal(t, fiber.StatusForbidden, code, path)
		assert.Equal(t, "AI-5", env.ErrorCode, path)
	}
	assert.Empty(t, svc.requests())
}

func TestHandleIngest_ResolvesUploadedSources(t *testing.T) {
	dir := withUploadDir(t)
	svc := &fakeRunner{}
	app := newApp(svc, nil)

	code, _ := postJSON(t, app, "/ingest", `{"path":"abc123.txt","section":2,"force":true}`)
	require.Equal(t, fiber.StatusOK, code)
	code, _ = postJSON(t, app, "/ingest", fmt.Sprintf(`{"path":%q,"section":3}`, filepath.Join(dir, "sub", "a.pdf")))
	require.Equal(t, fiber.StatusOK, code)
	code, _ = postJSON(t, app, "/ingest", `{"path":"s3://jlpt/transcripts/abc.txt","section":1}`)
	require.Equal(t, fiber.StatusOK, code)

	reqs := svc.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, ingest.Request{Path: filepath.Join(dir, "abc123.txt"), Section: 2, Force: true}, reqs[0])
	assert.Equal(t, filepath.Join(dir, "sub", "a.pdf"), reqs[1].Path)
	assert.Equal(t, "s3://jlpt/transcripts/abc.txt", reqs[2].Path)
}

func TestHandleIngest_BadRequests(t *testing.T) {
	withUploadDir(t)
	app := newApp(&fakeRunner{}, nil)

	code, env := postJSON(t, app, "/ingest", `{"path":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "AI-0", env.ErrorCode)

	code, env = postJSON(t, app, "/ingest", `{"path":"a.txt","section":7}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "AI-3", env.ErrorCode)

	code, _ = postJSON(t, app, "/ingest", `{"path":"  ","section":1}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestHandleIngest_ErrorMapping(t *testing.T) {
	withUploadDir(t)

	for _, tc := range []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{fmt.Errorf("%w: 4", vectorstore.ErrInvalidSection), fiber.StatusBadRequest, "AI-2"},
		{ingest.ErrUnsupportedFormat, fiber.StatusBadRequest, "AI-3"},
		{ingest.ErrEmptyContent, fiber.StatusBadRequest, "AI-3"},
		{ingest.ErrNoQuestions, fiber.StatusBadRequest, "AI-3"},
		{errors.New("milvus down"), fiber.StatusInternalServerError, "AI-1003"},
	} {
		app := newApp(&fakeRunner{err: tc.err}, nil)
		code, env := postJSON(t, app, "/ingest", `{"path":"a.txt","section":1}`)
		assert.Equal(t, tc.wantCode, code, tc.err.Error())
		assert.Equal(t, tc.wantErr, env.ErrorCode, tc.err.Error())
	}
}

func TestHandleIngest_Async(t *testing.T) {
	withUploadDir(t)
	svc := &fakeRunner{done: make(chan struct{}), err: errors.New("fails in background")}
	app := newApp(svc, nil)

	code, env := postJSON(t, app, "/ingest?async=true", `{"path":"a.txt","section":1}`)
	assert.Equal(t, fiber.StatusAccepted, code)
	assert.Equal(t, 202, env.Code)

	<-svc.done
	require.Len(t, svc.requests(), 1)
}

func multipartBody(t *testing.T, filename, content, section string) (string, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("section", section))
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf
}

func TestHandleUpload_Local(t *testing.T) {
	dir := withUploadDir(t)
	svc := &fakeRunner{}
	app := newApp(svc, nil)

	ct, body := multipartBody(t, "n3.TXT", "男：はい。", "2")
	code, _ := send(t, app, "POST", "/ingest/upload", ct, body)
	require.Equal(t, fiber.StatusOK, code)

	reqs := svc.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 2, reqs[0].Section)
	assert.Equal(t, dir, filepath.Dir(reqs[0].Path))
	assert.Equal(t, ".txt", filepath.Ext(reqs[0].Path))
	b, err := os.ReadFile(reqs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "男：はい。", string(b))
}

func TestHandleUpload_S3(t *testing.T) {
	withUploadDir(t)
	svc := &fakeRunner{}
	uploads := &fakeUploader{}
	app := newApp(svc, uploads)

	ct, body := multipartBody(t, "seed.json", "[]", "3")
	code, _ := send(t, app, "POST", "/ingest/upload", ct, body)
	require.Equal(t, fiber.StatusOK, code)

	assert.Equal(t, "jlpt", uploads.bucket)
	assert.True(t, strings.HasPrefix(uploads.key, "transcripts/"))
	assert.Equal(t, "[]", uploads.body)
	require.Len(t, svc.requests(), 1)
	assert.Equal(t, "s3://jlpt/"+uploads.key, svc.requests()[0].Path)
}

func TestHandleUpload_RejectsBeforeStoring(t *testing.T) {
	dir := withUploadDir(t)
	svc := &fakeRunner{}
	app := newApp(svc, nil)

	ct, body := multipartBody(t, "a.txt", "内容", "7")
	code, env := send(t, app, "POST", "/ingest/upload", ct, body)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "AI-2", env.ErrorCode)

	ct, body = multipartBody(t, "a.docx", "内容", "1")
	code, _ = send(t, app, "POST", "/ingest/upload", ct, body)
	assert.Equal(t, fiber.StatusBadRequest, code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, svc.requests())
}

func TestHandleTranscripts(t *testing.T) {
	svc := &fakeRunner{rows: []ingest.Transcript{{ID: 2, Path: "b.txt", Section: 1, Status: ingest.StatusReady, Questions: 3}}}
	code, env := send(t, newApp(svc, nil), "GET", "/ingest/transcripts", "", nil)
	assert.Equal(t, fiber.StatusOK, code)

	var rows []ingest.Transcript
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "b.txt", rows[0].Path)

	code, env = send(t, newApp(&fakeRunner{err: ingest.ErrNoDatabase}, nil), "GET", "/ingest/transcripts", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "AI-1005", env.ErrorCode)
}
