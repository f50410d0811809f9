package uploadService

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"AirlineETL/internal/api/upload"
	"AirlineETL/internal/entity"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/csvparse"
	"AirlineETL/pkg/detector"
	"AirlineETL/pkg/docx"
	"AirlineETL/pkg/redis"
	"AirlineETL/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, dataset string) (upload.UploadResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := s.utils.ValidateUploadFile(file); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected upload file")
		return upload.UploadResponse{}, mapFileError(err)
	}

	var requested detector.Dataset
	if strings.TrimSpace(dataset) != "" {
		d, ok := detector.Parse(dataset)
		if !ok {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"dataset":    dataset,
			}).Warn("Unsupported dataset requested")
			return upload.UploadResponse{}, upload.ErrUnsupportedDataset
		}
		requested = d
	}

	data, err := s.utils.ReadUploadFile(file)
	if err != nil {
		return upload.UploadResponse{}, mapFileError(err)
	}

	table, csvText, err := parseTable(file.Filename, data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"filename":   file.Filename,
			"error":      err.Error(),
		}).Warn("Failed to parse upload")
		return upload.UploadResponse{}, err
	}

	detection := s.resolveDetection(ctx, file.Filename, data, csvText, requested)

	uploadID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return upload.UploadResponse{}, upload.ErrStageUpload
	}

	run := entity.EtlRun{
		ID:        uploadID,
		UploadID:  uploadID,
		Dataset:   detection.Dataset,
		Status:    entity.RunStatusStarted,
		Message:   file.Filename,
		StartedAt: time.Now(),
	}

	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return upload.UploadResponse{}, upload.ErrStageUpload
	}

	if err := repo.Etl.CreateRun(ctx, run); err != nil {
		return upload.UploadResponse{}, upload.ErrStageUpload
	}

	archiveURL := s.archive(ctx, uploadID, file, data)

	staged, err := s.stage(ctx, entity.Upload{
		ID:         uploadID,
		Filename:   file.Filename,
		Dataset:    detection.Dataset,
		Status:     entity.UploadStatusStaged,
		SizeBytes:  int64(len(data)),
		StagedRows: len(table.Rows),
		ArchiveURL: archiveURL,
		DetectedBy: detection.Source,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, table.Records())
	if err != nil {
		cleanupCtx, cancel := cleanupContext(ctx)
		defer cancel()

		s.failRun(cleanupCtx, run, err)
		if archiveURL != "" {
			if deleteErr := s.s3.DeleteFile(archiveURL); deleteErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"error":      deleteErr.Error(),
				}).Error("Failed to delete archived upload after staging failure")
			}
		}
		return upload.UploadResponse{}, upload.ErrStageUpload
	}

	if err := s.redis.SetDetection(ctx, uploadID, detection); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Warn("Failed to cache detection, processing will fall back to the stored dataset")
	}
	s.publish(ctx, entity.Progress{
		UploadID: uploadID,
		Status:   entity.UploadStatusStaged,
		Total:    staged,
	})

	run.Status = entity.RunStatusStaged
	if err := repo.Etl.UpdateRun(ctx, run); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Warn("Failed to mark etl run as staged")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"upload_id":  uploadID,
		"dataset":    detection.Dataset,
		"source":     detection.Source,
		"staged":     staged,
	}).Info("Upload staged")

	warnings := table.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	tokens := detection.Tokens
	if tokens == nil {
		tokens = []string{}
	}

	return upload.UploadResponse{
		UploadID:   uploadID,
		Dataset:    detection.Dataset,
		Filename:   file.Filename,
		Staged:     staged,
		Tokens:     tokens,
		Warnings:   warnings,
		Source:     detection.Source,
		ArchiveURL: archiveURL,
	}, nil
}

func (s *uploadService) Detect(ctx context.Context, file *multipart.FileHeader) (upload.DetectResponse, error) {
	if err := s.utils.ValidateUploadFile(file); err != nil {
		return upload.DetectResponse{}, mapFileError(err)
	}

	data, err := s.utils.ReadUploadFile(file)
	if err != nil {
		return upload.DetectResponse{}, mapFileError(err)
	}

	var csvText string
	if isDocxName(file.Filename) {
		// a docx that cannot be read still gets a filename based answer
		_, csvText, _ = parseTable(file.Filename, data)
	}

	detection := s.resolveDetection(ctx, file.Filename, data, csvText, "")
	tokens := detection.Tokens
	if tokens == nil {
		tokens = []string{}
	}

	return upload.DetectResponse{
		Dataset: detection.Dataset,
		Tokens:  tokens,
		Scores:  detection.Scores,
		Source:  detection.Source,
	}, nil
}

func (s *uploadService) GetUpload(ctx context.Context, uploadID string) (upload.StatusResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return upload.StatusResponse{}, err
	}

	u, err := repo.Upload.GetUploadByID(ctx, uploadID)
	if err != nil {
		return upload.StatusResponse{}, err
	}

	var progress *entity.Progress
	if p, err := s.redis.GetProgress(ctx, uploadID); err == nil {
		progress = &p
	}

	if u.ArchiveURL != "" && s.s3 != nil {
		if signed, err := s.s3.PresignUrl(u.ArchiveURL); err == nil {
			u.ArchiveURL = signed
		} else {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"upload_id":  uploadID,
				"error":      err.Error(),
			}).Warn("Failed to presign archived upload")
		}
	}

	return upload.NewStatusResponse(u, progress), nil
}

// Progress returns the latest published progress, or one derived from the
// stored upload when nothing has been published yet.
func (s *uploadService) Progress(ctx context.Context, uploadID string) (entity.Progress, error) {
	p, err := s.redis.GetProgress(ctx, uploadID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, redis.ErrNotFound) {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Warn("Failed to read progress")
	}

	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		return entity.Progress{}, err
	}
	u, err := repo.Upload.GetUploadByID(ctx, uploadID)
	if err != nil {
		return entity.Progress{}, err
	}

	p = entity.Progress{UploadID: u.ID, Status: u.Status, Total: u.StagedRows}
	if u.Status == entity.UploadStatusProcessed {
		p.Percent = 100
	}
	return p, nil
}

func (s *uploadService) resolveDetection(ctx context.Context, filename string, data []byte, csvText string, requested detector.Dataset) entity.Detection {
	if requested != "" {
		return entity.Detection{Dataset: requested, Source: entity.DetectedByRequest}
	}

	result := detector.Detect(ctx, detector.FromBytes(filename, data))
	if result.Source == detector.SourceDefault && csvText != "" {
		// docx bodies are zipped; look at the extracted header instead
		result = detector.Detect(ctx, detector.FromBytes(filename, []byte(csvText)))
	}

	if result.Err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"filename":   filename,
			"dataset":    result.Dataset,
			"reason":     result.Err.Error(),
		}).Debug("Dataset detection fell back to default")
	}

	return entity.Detection{
		Dataset: result.Dataset,
		Tokens:  result.Tokens,
		Scores:  result.Scores,
		Source:  result.Source,
	}
}

func (s *uploadService) stage(ctx context.Context, u entity.Upload, records []map[string]string) (int, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.uploadRepository.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to begin staging transaction")
		return 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := repo.Rollback(); rbErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"error":      rbErr.Error(),
				}).Error("Failed to rollback staging transaction")
			}
		}
	}()

	if err = repo.Upload.CreateUpload(ctx, u); err != nil {
		return 0, err
	}

	rows := make([]entity.StagedRow, 0, len(records))
	for i, rec := range records {
		rows = append(rows, entity.StagedRow{UploadID: u.ID, RowIndex: i, Payload: rec})
	}

	var staged int
	if staged, err = repo.Upload.InsertStagedRows(ctx, u.Dataset, rows); err != nil {
		return 0, err
	}

	if err = repo.Commit(); err != nil {
		return 0, err
	}

	return staged, nil
}

func (s *uploadService) archive(ctx context.Context, uploadID string, file *multipart.FileHeader, data []byte) string {
	if !s.cfg.StoreUploads || s.s3 == nil {
		return ""
	}

	location, err := s.s3.Archive(ctx, uploadID, file.Filename, bytes.NewReader(data), file.Header.Get("Content-Type"))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Warn("Failed to archive original upload")
		return ""
	}
	return location
}

func (s *uploadService) failRun(ctx context.Context, run entity.EtlRun, cause error) {
	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		return
	}

	now := time.Now()
	run.Status = entity.RunStatusFailed
	run.Message = cause.Error()
	run.FinishedAt = &now
	if err := repo.Etl.UpdateRun(ctx, run); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Error("Failed to mark etl run as failed")
	}
}

func (s *uploadService) publish(ctx context.Context, p entity.Progress) {
	if err := s.redis.SetProgress(ctx, p); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"upload_id":  p.UploadID,
			"error":      err.Error(),
		}).Warn("Failed to publish progress")
	}
}

// parseTable turns an upload into a table. For docx files it also returns
// the intermediate CSV text.
func parseTable(filename string, data []byte) (*csvparse.Table, string, error) {
	content := data
	var csvText string

	if isDocxName(filename) {
		doc, err := docx.Read(data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", upload.ErrUnreadableFile, err)
		}
		csvText, err = doc.CSV(false)
		if err != nil {
			return nil, "", upload.ErrNoRows
		}
		content = []byte(csvText)
	}

	table, err := csvparse.Parse(content)
	if err != nil {
		if errors.Is(err, csvparse.ErrEmpty) {
			return nil, csvText, upload.ErrNoRows
		}
		return nil, csvText, fmt.Errorf("%w: %v", upload.ErrUnreadableFile, err)
	}
	if len(table.Rows) == 0 {
		return nil, csvText, upload.ErrNoRows
	}

	return table, csvText, nil
}

func isDocxName(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".docx")
}

func mapFileError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return upload.ErrNoFile
	case errors.Is(err, utils.ErrEmptyFile):
		return upload.ErrEmptyFile
	case errors.Is(err, utils.ErrFileTooLarge):
		return upload.ErrFileTooLarge
	case errors.Is(err, utils.ErrUnsupportedExtension):
		return upload.ErrUnsupportedExtension
	default:
		return fmt.Errorf("%w: %v", upload.ErrUnreadableFile, err)
	}
}
