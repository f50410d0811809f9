package uploadService

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"AirlineETL/internal/api/upload"
	uploadRepository "AirlineETL/internal/api/upload/repository"
	"AirlineETL/internal/entity"
	"AirlineETL/internal/etl"
	"AirlineETL/pkg/detector"
	"AirlineETL/pkg/redis"
	"AirlineETL/pkg/utils"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

// store is an in-memory stand-in for the upload tables.
type store struct {
	mu sync.Mutex

	uploads      map[string]entity.Upload
	staged       map[string][]entity.StagedRow
	runs         map[string]entity.EtlRun
	cleaned      map[string]etl.CleanedRow
	importErrors []entity.ImportError

	stageErr  error
	upsertErr error
	onUpsert  func(ctx context.Context)
	claimed   map[string]bool

	commits   int
	rollbacks int
}

func newStore() *store {
	return &store{
		uploads: map[string]entity.Upload{},
		staged:  map[string][]entity.StagedRow{},
		runs:    map[string]entity.EtlRun{},
		cleaned: map[string]etl.CleanedRow{},
		claimed: map[string]bool{},
	}
}

func (s *store) NewClient(tx bool) (uploadRepository.Client, error) {
	return uploadRepository.Client{
		Upload: &fakeUploads{s},
		Etl:    &fakeEtl{s},
		Commit: func() error {
			if tx {
				s.mu.Lock()
				s.commits++
				s.mu.Unlock()
			}
			return nil
		},
		Rollback: func() error {
			if tx {
				s.mu.Lock()
				s.rollbacks++
				s.mu.Unlock()
			}
			return nil
		},
	}, nil
}

func (s *store) runsFor(uploadID string) []entity.EtlRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.EtlRun
	for _, r := range s.runs {
		if r.UploadID == uploadID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeUploads struct{ s *store }

func (f *fakeUploads) CreateUpload(ctx context.Context, u entity.Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.uploads[u.ID] = u
	return nil
}

func (f *fakeUploads) GetUploadByID(ctx context.Context, id string) (entity.Upload, error) {
	if err := ctx.Err(); err != nil {
		return entity.Upload{}, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.uploads[id]
	if !ok {
		return entity.Upload{}, upload.ErrUploadNotFound
	}
	return u, nil
}

func (f *fakeUploads) UpdateUploadStatus(ctx context.Context, id string, status entity.UploadStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.uploads[id]
	if !ok {
		return upload.ErrUploadNotFound
	}
	u.Status = status
	if status == entity.UploadStatusProcessed {
		now := time.Now()
		u.ProcessedAt = &now
	}
	f.s.uploads[id] = u
	return nil
}

func (f *fakeUploads) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.uploads[id]
	if !ok || u.Status == entity.UploadStatusProcessing {
		return false, nil
	}
	u.Status = entity.UploadStatusProcessing
	f.s.uploads[id] = u
	return true, nil
}

func (f *fakeUploads) InsertStagedRows(ctx context.Context, _ detector.Dataset, rows []entity.StagedRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.stageErr != nil {
		return 0, f.s.stageErr
	}
	for _, r := range rows {
		f.s.staged[r.UploadID] = append(f.s.staged[r.UploadID], r)
	}
	return len(rows), nil
}

func (f *fakeUploads) GetStagedRows(ctx context.Context, uploadID string) ([]entity.StagedRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]entity.StagedRow(nil), f.s.staged[uploadID]...), nil
}

type fakeEtl struct{ s *store }

func (f *fakeEtl) CreateRun(ctx context.Context, run entity.EtlRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.runs[run.ID] = run
	return nil
}

func (f *fakeEtl) UpdateRun(ctx context.Context, run entity.EtlRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.runs[run.ID] = run
	return nil
}

func (f *fakeEtl) UpsertCleanedRecords(ctx context.Context, dataset detector.Dataset, _ string, rows []etl.CleanedRow) (int, error) {
	if f.s.onUpsert != nil {
		f.s.onUpsert(ctx)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.upsertErr != nil {
		return 0, f.s.upsertErr
	}
	for _, r := range rows {
		f.s.cleaned[string(dataset)+"|"+r.Key] = r
	}
	return len(rows), nil
}

func (f *fakeEtl) InsertImportErrors(ctx context.Context, _ string, errs []entity.ImportError) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.importErrors = append(f.s.importErrors, errs...)
	return nil
}

type fakeS3 struct {
	archived map[string][]byte
	deleted  []string
	fail     bool
}

func (f *fakeS3) Archive(ctx context.Context, uploadID, filename string, body io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.fail {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.archived == nil {
		f.archived = map[string][]byte{}
	}
	location := fmt.Sprintf("https://bucket.s3.amazonaws.com/uploads/%s/%s", uploadID, filename)
	f.archived[location] = data
	return location, nil
}

func (f *fakeS3) PresignUrl(fileUrl string) (string, error) {
	return fileUrl + "?signed=1", nil
}

func (f *fakeS3) DeleteFile(fileUrl string) error {
	f.deleted = append(f.deleted, fileUrl)
	return nil
}

type fixture struct {
	svc   IUploadService
	store *store
	redis redis.IRedis
	mr    *miniredis.Miniredis
	s3    *fakeS3
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store: newStore(),
		redis: redis.NewWithClient(client, time.Hour),
		mr:    mr,
		s3:    &fakeS3{},
	}
	f.svc = NewUploadService(logger, f.store, f.redis, f.s3, utils.New(1024*1024), cfg)
	return f
}

func fileHeader(t *testing.T, name string, data []byte, contentType string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func buildDocx(t *testing.T, rows ...[]string) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString("<w:tbl>")
	for _, row := range rows {
		body.WriteString("<w:tr>")
		for _, cell := range row {
			body.WriteString("<w:tc><w:p><w:r><w:t>" + cell + "</w:t></w:r></w:p></w:tc>")
		}
		body.WriteString("</w:tr>")
	}
	body.WriteString("</w:tbl>")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
