package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jlpt-listening/internal/core/llm"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/core/vectorstore"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestBuildChunks_WindowsWithOverlap(t *testing.T) {
	chunks := BuildChunks([]string{"あいうえおかきくけこ", "  ", "さしす"}, 4, 1)

	require.Len(t, chunks, 4)
	assert.Equal(t, "あいうえ", chunks[0].Content)
	assert.Equal(t, "えおかき", chunks[1].Content)
	assert.Equal(t, "きくけこ", chunks[2].Content)
	assert.Equal(t, "さしす", chunks[3].Content)
	assert.Equal(t, 3, chunks[3].PageIndex)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
	}
}

func TestBuildChunks_OverlapNotSmallerThanWindow(t *testing.T) {
	chunks := BuildChunks([]string{"abcdef"}, 2, 5)
	require.Len(t, chunks, 3)
	assert.Equal(t, "ef", chunks[2].Content)
}

func TestExtractPages_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.txt")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFF問題１\x00\n男：はい。\n"), 0o644))

	pages, err := ExtractPages(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"問題１\n男：はい。"}, pages)

	empty := filepath.Join(t.TempDir(), "e.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	_, err = ExtractPages(empty)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = ExtractPages(filepath.Join(t.TempDir(), "x.docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type fakeObjects struct {
	body   string
	bucket string
	key    string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestFetchToLocalTemp_S3(t *testing.T) {
	objects := &fakeObjects{body: "transcript"}
	path, cleanup, err := FetchToLocalTemp(context.Background(), objects, "s3://media/jlpt/n3.txt")
	require.NoError(t, err)

	assert.Equal(t, "media", objects.bucket)
	assert.Equal(t, "jlpt/n3.txt", objects.key)
	assert.Equal(t, ".txt", filepath.Ext(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "transcript", string(b))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = FetchToLocalTemp(context.Background(), nil, "s3://media/x.txt")
	assert.Error(t, err)
}

type recordingStore struct {
	calls    int
	stored   []question.Question
	sections []int
}

func (r *recordingStore) Store(_ context.Context, qs []question.Question, section int) ([]string, error) {
	r.calls++
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = vectorstore.EntryID(section, int64(len(r.stored)))
		r.stored = append(r.stored, q)
		r.sections = append(r.sections, section)
	}
	return ids, nil
}

type scriptedChat struct {
	reply string
	err   error
	calls int
}

func (c *scriptedChat) Complete(context.Context, []llm.Message, llm.Params) (string, error) {
	c.calls++
	return c.reply, c.err
}

const structured = `introduction: 男の人と女の人が話しています。
conversation: 女：荷物はどこに置きますか。
男：机の上にお願いします。
question: 荷物はどこに置きますか。
---
introduction: 先生が話しています。
conversation: 明日は九時に集まってください。
question: 何時に集まりますか。`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ingest.db")),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	return db
}

func writeTranscript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestService_StructuresAndStores(t *testing.T) {
	store := &recordingStore{}
	chat := &scriptedChat{reply: structured}
	svc, err := NewService(context.Background(), store, chat, nil, nil)
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), Request{Path: writeTranscript(t, "a.txt", "問題一。問題二。"), Section: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 2, res.Questions)
	assert.Equal(t, []string{"section2_question_0", "section2_question_1"}, res.IDs)
	require.Len(t, store.stored, 2)
	assert.Equal(t, "女：荷物はどこに置きますか。\n男：机の上にお願いします。", store.stored[0].Conversation)
	assert.Equal(t, 2, store.stored[1].Section)
}

func TestService_InvalidSection(t *testing.T) {
	svc, err := NewService(context.Background(), &recordingStore{}, &scriptedChat{}, nil, nil)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), Request{Path: "x.txt", Section: 4})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidSection)

	_, err = svc.Transcripts(context.Background())
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestService_ChatFailureAndNoQuestions(t *testing.T) {
	path := writeTranscript(t, "a.txt", "内容")

	svc, _ := NewService(context.Background(), &recordingStore{}, &scriptedChat{err: errors.New("down")}, nil, nil)
	_, err := svc.Run(context.Background(), Request{Path: path, Section: 1})
	assert.Error(t, err)

	svc, _ = NewService(context.Background(), &recordingStore{}, &scriptedChat{reply: "nothing here"}, nil, nil)
	_, err = svc.Run(context.Background(), Request{Path: path, Section: 1})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestService_SeedFileSkipsModel(t *testing.T) {
	seed := `[
  {"introduction":"a","conversation":"b","question":"c","options":["1","2","3","4"],"correct_answer":1},
  {"introduction":"","conversation":"b","question":"c"},
  {"introduction":"a","conversation":"b","question":"c","options":["1","2"],"correct_answer":1}
]`
	store := &recordingStore{}
	chat := &scriptedChat{}
	svc, _ := NewService(context.Background(), store, chat, nil, nil)

	res, err := svc.Run(context.Background(), Request{Path: writeTranscript(t, "seed.json", seed), Section: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, chat.calls)
	assert.Equal(t, 1, res.Questions)
	assert.Equal(t, 1, *store.stored[0].CorrectAnswer)
}

func TestService_SkipsKnownContentUnlessForced(t *testing.T) {
	db := openTestDB(t)
	store := &recordingStore{}
	svc, err := NewService(context.Background(), store, &scriptedChat{reply: structured}, db, nil)
	require.NoError(t, err)
	path := writeTranscript(t, "a.txt", "同じ内容")

	first, err := svc.Run(context.Background(), Request{Path: path, Section: 3})
	require.NoError(t, err)
	assert.NotZero(t, first.TranscriptID)

	again, err := svc.Run(context.Background(), Request{Path: path, Section: 3})
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, first.TranscriptID, again.TranscriptID)
	assert.Equal(t, 1, store.calls)

	forced, err := svc.Run(context.Background(), Request{Path: path, Section: 3, Force: true})
	require.NoError(t, err)
	assert.False(t, forced.Skipped)
	assert.Equal(t, 2, store.calls)

	other, err := svc.Run(context.Background(), Request{Path: path, Section: 2})
	require.NoError(t, err)
	assert.False(t, other.Skipped)

	rows, err := svc.Transcripts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, StatusReady, r.Status)
		assert.Equal(t, 2, r.Questions)
	}
}
