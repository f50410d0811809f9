package uploadService

import (
	"errors"
	"strings"
	"testing"

	"AirlineETL/internal/api/upload"
	"AirlineETL/internal/entity"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/detector"
	"AirlineETL/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

const flightsCSV = "FlightKey,OriginAirportKey,DestinationAirportKey\n" +
	"FL1,cgk,dps\n" +
	"FL2,dps,cgk\n" +
	"FL2,dps,cgk\n" +
	"FL1,cgk,sub\n" +
	",cgk,kno\n"

func testCtx() context.Context {
	return contextPkg.WithRequestID(context.Background(), "req-test")
}

func TestUpload_DetectsAndStages(t *testing.T) {
	f := newFixture(t, Config{})

	res, err := f.svc.Upload(testCtx(), fileHeader(t, "data.csv", []byte(flightsCSV), "text/csv"), "")
	require.NoError(t, err)

	assert.NotEmpty(t, res.UploadID)
	assert.Equal(t, detector.Flight, res.Dataset)
	assert.Equal(t, detector.SourceHeader, res.Source)
	assert.Equal(t, "data.csv", res.Filename)
	assert.Equal(t, 5, res.Staged)
	assert.Contains(t, res.Tokens, "flightkey")
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.ArchiveURL)

	u := f.store.uploads[res.UploadID]
	assert.Equal(t, entity.UploadStatusStaged, u.Status)
	assert.Equal(t, detector.Flight, u.Dataset)
	assert.Equal(t, 5, u.StagedRows)
	assert.EqualValues(t, len(flightsCSV), u.SizeBytes)

	staged := f.store.staged[res.UploadID]
	require.Len(t, staged, 5)
	assert.Equal(t, "FL1", staged[0].Payload["FlightKey"])
	assert.Equal(t, 4, staged[4].RowIndex)

	runs := f.store.runsFor(res.UploadID)
	require.Len(t, runs, 1)
	assert.Equal(t, entity.RunStatusStaged, runs[0].Status)
	assert.Equal(t, 1, f.store.commits)

	detection, err := f.redis.GetDetection(testCtx(), res.UploadID)
	require.NoError(t, err)
	assert.Equal(t, detector.Flight, detection.Dataset)

	progress, err := f.redis.GetProgress(testCtx(), res.UploadID)
	require.NoError(t, err)
	assert.Equal(t, entity.UploadStatusStaged, progress.Status)
	assert.Equal(t, 5, progress.Total)
}

func TestUpload_RequestedDatasetSkipsDetection(t *testing.T) {
	f := newFixture(t, Config{})

	res, err := f.svc.Upload(testCtx(), fileHeader(t, "data.csv", []byte(flightsCSV), ""), "passengers")
	require.NoError(t, err)
	assert.Equal(t, detector.Passenger, res.Dataset)
	assert.Equal(t, entity.DetectedByRequest, res.Source)
	assert.Empty(t, res.Tokens)
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name     string
		filename string
		content  string
		dataset  string
		want     error
	}{
		{"wrong extension", "notes.txt", "a,b\n1,2\n", "", upload.ErrUnsupportedExtension},
		{"empty file", "empty.csv", "", "", upload.ErrEmptyFile},
		{"unknown dataset", "data.csv", "a,b\n1,2\n", "hotels", upload.ErrUnsupportedDataset},
		{"header only", "data.csv", "airlinekey,airlinename\n", "", upload.ErrNoRows},
		{"too large", "big.csv", "a\n" + strings.Repeat("1\n", 600*1024), "", upload.ErrFileTooLarge},
		{"broken docx", "table.docx", "not a zip", "", upload.ErrUnreadableFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(testCtx(), fileHeader(t, tt.filename, []byte(tt.content), ""), tt.dataset)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.store.uploads)
}

func TestUpload_NoFile(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.Upload(testCtx(), nil, "")
	assert.ErrorIs(t, err, upload.ErrNoFile)
}

func TestUpload_DocxTableIsDetectedFromExtractedHeader(t *testing.T) {
	f := newFixture(t, Config{})
	content := buildDocx(t,
		[]string{"AirportKey", "AirportName", "City"},
		[]string{"CGK", "Soekarno-Hatta", "Jakarta"},
		[]string{"DPS", "Ngurah Rai", "Denpasar"},
	)

	res, err := f.svc.Upload(testCtx(), fileHeader(t, "list.docx", content, ""), "")
	require.NoError(t, err)
	assert.Equal(t, detector.Airport, res.Dataset)
	assert.Equal(t, detector.SourceContent, res.Source)
	assert.Equal(t, 2, res.Staged)
	assert.Equal(t, "CGK", f.store.staged[res.UploadID][0].Payload["AirportKey"])
}

func TestUpload_ArchivesWhenEnabled(t *testing.T) {
	f := newFixture(t, Config{StoreUploads: true})

	res, err := f.svc.Upload(testCtx(), fileHeader(t, "flights.csv", []byte(flightsCSV), "text/csv"), "")
	require.NoError(t, err)
	require.NotEmpty(t, res.ArchiveURL)
	assert.Equal(t, flightsCSV, string(f.s3.archived[res.ArchiveURL]))
	assert.Equal(t, res.ArchiveURL, f.store.uploads[res.UploadID].ArchiveURL)
}

func TestUpload_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, Config{StoreUploads: true})
	f.s3.fail = true

	res, err := f.svc.Upload(testCtx(), fileHeader(t, "flights.csv", []byte(flightsCSV), ""), "")
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveURL)
}

func TestUpload_StagingFailureMarksRunFailed(t *testing.T) {
	f := newFixture(t, Config{StoreUploads: true})
	f.store.stageErr = errors.New("disk full")

	_, err := f.svc.Upload(testCtx(), fileHeader(t, "flights.csv", []byte(flightsCSV), ""), "")
	assert.ErrorIs(t, err, upload.ErrStageUpload)

	require.Len(t, f.store.runs, 1)
	for _, run := range f.store.runs {
		assert.Equal(t, entity.RunStatusFailed, run.Status)
		assert.Equal(t, "disk full", run.Message)
		assert.NotNil(t, run.FinishedAt)
	}
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Len(t, f.s3.deleted, 1)
}

func TestDetect(t *testing.T) {
	f := newFixture(t, Config{})

	res, err := f.svc.Detect(testCtx(), fileHeader(t, "x.csv", []byte("AirlineKey,AirlineName,Alliance\nGA,Garuda,SkyTeam\n"), ""))
	require.NoError(t, err)
	assert.Equal(t, detector.Airline, res.Dataset)
	assert.Equal(t, detector.SourceHeader, res.Source)
	assert.Equal(t, []string{"airlinekey", "airlinename", "alliance"}, res.Tokens)
	assert.Greater(t, res.Scores[detector.Airline], 0.0)

	res, err = f.svc.Detect(testCtx(), fileHeader(t, "corp_invoices.docx", []byte("not a zip"), ""))
	require.NoError(t, err)
	assert.Equal(t, detector.CorporateSales, res.Dataset)
	assert.Equal(t, detector.SourceFilename, res.Source)
	assert.Equal(t, []string{}, res.Tokens)

	_, err = f.svc.Detect(testCtx(), fileHeader(t, "x.pdf", []byte("%PDF"), ""))
	assert.ErrorIs(t, err, upload.ErrUnsupportedExtension)
}

func TestGetUpload(t *testing.T) {
	f := newFixture(t, Config{StoreUploads: true})

	staged, err := f.svc.Upload(testCtx(), fileHeader(t, "flights.csv", []byte(flightsCSV), ""), "")
	require.NoError(t, err)

	res, err := f.svc.GetUpload(testCtx(), staged.UploadID)
	require.NoError(t, err)
	assert.Equal(t, staged.UploadID, res.UploadID)
	assert.Equal(t, "staged", res.Status)
	assert.Equal(t, 5, res.StagedRows)
	assert.Equal(t, staged.ArchiveURL+"?signed=1", res.ArchiveURL)
	require.NotNil(t, res.Progress)
	assert.Equal(t, entity.UploadStatusStaged, res.Progress.Status)

	_, err = f.svc.GetUpload(testCtx(), "missing")
	assert.ErrorIs(t, err, upload.ErrUploadNotFound)
}

func TestProgress_FallsBackToStoredUpload(t *testing.T) {
	f := newFixture(t, Config{})

	staged, err := f.svc.Upload(testCtx(), fileHeader(t, "flights.csv", []byte(flightsCSV), ""), "")
	require.NoError(t, err)
	f.mr.FlushAll()

	p, err := f.svc.Progress(testCtx(), staged.UploadID)
	require.NoError(t, err)
	assert.Equal(t, entity.UploadStatusStaged, p.Status)
	assert.Equal(t, 5, p.Total)
	assert.Zero(t, p.Percent)

	_, err = f.svc.Progress(testCtx(), "missing")
	assert.ErrorIs(t, err, upload.ErrUploadNotFound)

	_, err = f.redis.GetProgress(testCtx(), "missing")
	assert.ErrorIs(t, err, redis.ErrNotFound)
}
