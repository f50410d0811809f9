package uploadService

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"AirlineETL/internal/api/upload"
	"AirlineETL/internal/entity"
	"AirlineETL/internal/etl"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/detector"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	cleanedTable = "cleaned_records"

	cleanupTimeout = 10 * time.Second
)

func (s *uploadService) Process(ctx context.Context, uploadID string, req upload.ProcessRequest) (upload.ProcessResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}

	u, err := repo.Upload.GetUploadByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			return upload.ProcessResponse{}, err
		}
		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}

	dataset, err := s.datasetFor(ctx, u, req.Dataset)
	if err != nil {
		return upload.ProcessResponse{}, err
	}

	cleaner, err := etl.For(dataset)
	if err != nil {
		return upload.ProcessResponse{}, upload.ErrUnsupportedDataset
	}

	claimed, err := repo.Upload.ClaimForProcessing(ctx, uploadID)
	if err != nil {
		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}
	if !claimed {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  uploadID,
		}).Warn("Upload is already being processed")
		return upload.ProcessResponse{}, upload.ErrAlreadyProcessing
	}

	runID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.restoreStatus(ctx, uploadID, u.Status)
		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}

	run := entity.EtlRun{
		ID:        runID,
		UploadID:  uploadID,
		Dataset:   dataset,
		Status:    entity.RunStatusRunning,
		Message:   u.Filename,
		StartedAt: time.Now(),
	}
	if err := repo.Etl.CreateRun(ctx, run); err != nil {
		s.restoreStatus(ctx, uploadID, u.Status)
		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}

	progress := entity.Progress{UploadID: uploadID, Status: entity.UploadStatusProcessing}
	s.publish(ctx, progress)

	res, err := s.runEtl(ctx, run, cleaner, &progress)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  uploadID,
			"run_id":     runID,
			"error":      err.Error(),
		}).Error("ETL run failed")

		cleanupCtx, cancel := cleanupContext(ctx)
		defer cancel()

		s.recordPipelineError(cleanupCtx, run, err)
		s.failRun(cleanupCtx, run, err)
		if statusErr := repo.Upload.UpdateUploadStatus(cleanupCtx, uploadID, entity.UploadStatusFailed); statusErr != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"upload_id":  uploadID,
				"error":      statusErr.Error(),
			}).Error("Failed to mark upload as failed")
		}
		progress.Status = entity.UploadStatusFailed
		progress.Message = upload.ErrProcessUpload.Error()
		s.publish(cleanupCtx, progress)

		return upload.ProcessResponse{}, upload.ErrProcessUpload
	}

	now := time.Now()
	run.Status = entity.RunStatusSuccess
	run.Processed = res.Processed
	run.Failed = res.Errors
	run.FinishedAt = &now
	if err := repo.Etl.UpdateRun(ctx, run); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     runID,
			"error":      err.Error(),
		}).Warn("Failed to mark etl run as successful")
	}
	if err := repo.Upload.UpdateUploadStatus(ctx, uploadID, entity.UploadStatusProcessed); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Warn("Failed to mark upload as processed")
	}

	progress.Status = entity.UploadStatusProcessed
	progress.Percent = 100
	s.publish(ctx, progress)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"upload_id":  uploadID,
		"run_id":     runID,
		"dataset":    dataset,
		"processed":  res.Processed,
		"errors":     res.Errors,
		"duplicates": res.Duplicates,
	}).Info("Upload processed")

	res.UploadID = uploadID
	res.Dataset = dataset
	res.RunID = runID
	return res, nil
}

// datasetFor picks the dataset to clean with: the requested one, else the
// cached detection for the upload, else the dataset stored with the upload.
func (s *uploadService) datasetFor(ctx context.Context, u entity.Upload, requested string) (detector.Dataset, error) {
	if strings.TrimSpace(requested) != "" {
		d, ok := detector.Parse(requested)
		if !ok {
			return "", upload.ErrUnsupportedDataset
		}
		return d, nil
	}

	detection, err := s.redis.GetDetection(ctx, u.ID)
	if err == nil && detection.Dataset.Valid() {
		return detection.Dataset, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"upload_id":  u.ID,
		"dataset":    u.Dataset,
	}).Debug("No cached detection, using the stored dataset")

	if !u.Dataset.Valid() {
		return detector.Default, nil
	}
	return u.Dataset, nil
}

func (s *uploadService) runEtl(ctx context.Context, run entity.EtlRun, cleaner etl.Cleaner, progress *entity.Progress) (upload.ProcessResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	reader, err := s.uploadRepository.NewClient(false)
	if err != nil {
		return upload.ProcessResponse{}, err
	}

	staged, err := reader.Upload.GetStagedRows(ctx, run.UploadID)
	if err != nil {
		return upload.ProcessResponse{}, fmt.Errorf("load staged rows: %w", err)
	}

	payloads := make([]map[string]string, len(staged))
	for i, row := range staged {
		payloads[i] = row.Payload
	}

	outcome := cleaner.Clean(payloads)
	rows := collapseByKey(outcome.Rows)
	progress.Total = len(rows)

	importErrors := make([]entity.ImportError, 0, len(outcome.Errors))
	for _, e := range outcome.Errors {
		importErrors = append(importErrors, entity.ImportError{
			RunID:    run.ID,
			RowIndex: staged[e.Index].RowIndex,
			Raw:      e.Raw,
			Message:  e.Message,
		})
	}

	repo, err := s.uploadRepository.NewClient(true)
	if err != nil {
		return upload.ProcessResponse{}, err
	}
	defer func() {
		if err != nil {
			if rbErr := repo.Rollback(); rbErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"error":      rbErr.Error(),
				}).Error("Failed to rollback processing transaction")
			}
		}
	}()

	for start := 0; start < len(rows); start += s.cfg.BatchSize {
		if err = ctx.Err(); err != nil {
			return upload.ProcessResponse{}, err
		}

		end := min(start+s.cfg.BatchSize, len(rows))
		var written int
		if written, err = repo.Etl.UpsertCleanedRecords(ctx, run.Dataset, run.UploadID, rows[start:end]); err != nil {
			return upload.ProcessResponse{}, fmt.Errorf("upsert cleaned records: %w", err)
		}

		progress.Processed += written
		progress.Percent = percent(progress.Processed, progress.Total)
		s.publish(ctx, *progress)
	}

	if len(importErrors) > 0 {
		if err = repo.Etl.InsertImportErrors(ctx, cleanedTable, importErrors); err != nil {
			return upload.ProcessResponse{}, fmt.Errorf("record import errors: %w", err)
		}
	}

	if err = repo.Commit(); err != nil {
		return upload.ProcessResponse{}, fmt.Errorf("commit: %w", err)
	}

	progress.Failed = len(importErrors)

	return upload.ProcessResponse{
		Processed:  len(rows),
		Errors:     len(importErrors),
		Duplicates: outcome.Duplicates + len(outcome.Rows) - len(rows),
	}, nil
}

func (s *uploadService) recordPipelineError(ctx context.Context, run entity.EtlRun, cause error) {
	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		return
	}

	err = repo.Etl.InsertImportErrors(ctx, cleanedTable, []entity.ImportError{{
		RunID:    run.ID,
		RowIndex: -1,
		Raw:      map[string]string{"upload_id": run.UploadID, "error": cause.Error()},
		Message:  "ETL pipeline exception",
	}})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Warn("Failed to record pipeline error")
	}
}

func (s *uploadService) restoreStatus(ctx context.Context, uploadID string, status entity.UploadStatus) {
	repo, err := s.uploadRepository.NewClient(false)
	if err != nil {
		return
	}

	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := repo.Upload.UpdateUploadStatus(ctx, uploadID, status); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Error("Failed to restore upload status")
	}
}

// cleanupContext outlives a cancelled or timed out request so a failed run
// still reaches a terminal status.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(contextPkg.Detach(ctx), cleanupTimeout)
}

// collapseByKey keeps one row per business key: the last one seen, at the
// position of the first.
func collapseByKey(rows []etl.CleanedRow) []etl.CleanedRow {
	pos := make(map[string]int, len(rows))
	out := make([]etl.CleanedRow, 0, len(rows))
	for _, row := range rows {
		if i, ok := pos[row.Key]; ok {
			out[i] = row
			continue
		}
		pos[row.Key] = len(out)
		out = append(out, row)
	}
	return out
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
