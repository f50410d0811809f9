package uploadRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"AirlineETL/internal/api/upload"
	"AirlineETL/internal/entity"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/detector"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type UploadDB struct {
	ID          sql.NullString `db:"id"`
	Filename    sql.NullString `db:"filename"`
	Dataset     sql.NullString `db:"dataset"`
	Status      sql.NullString `db:"status"`
	SizeBytes   sql.NullInt64  `db:"size_bytes"`
	StagedRows  sql.NullInt64  `db:"staged_rows"`
	ArchiveURL  sql.NullString `db:"archive_url"`
	DetectedBy  sql.NullString `db:"detected_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	ProcessedAt sql.NullTime   `db:"processed_at"`
}

type StagedRowDB struct {
	UploadID sql.NullString `db:"upload_id"`
	RowIndex sql.NullInt64  `db:"row_index"`
	Raw      []byte         `db:"raw"`
}

func (r *uploadRepository) CreateUpload(c context.Context, u entity.Upload) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":          u.ID,
		"filename":    u.Filename,
		"dataset":     string(u.Dataset),
		"status":      string(u.Status),
		"size_bytes":  u.SizeBytes,
		"staged_rows": u.StagedRows,
		"archive_url": nullString(u.ArchiveURL),
		"detected_by": string(u.DetectedBy),
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateUpload, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateUpload")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  u.ID,
			"error":      err.Error(),
		}).Error("Database error when creating upload")
		return err
	}

	return nil
}

func (r *uploadRepository) GetUploadByID(c context.Context, id string) (entity.Upload, error) {
	requestID := contextPkg.GetRequestID(c)
	var row UploadDB

	query, args, err := sqlx.Named(queryGetUploadByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetUploadByID named query preparation err")
		return entity.Upload{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"upload_id":  id,
			}).Warn("GetUploadByID no rows found")
			return entity.Upload{}, upload.ErrUploadNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetUploadByID execution err")
		return entity.Upload{}, err
	}

	return makeUpload(row), nil
}

func (r *uploadRepository) UpdateUploadStatus(c context.Context, id string, status entity.UploadStatus) error {
	requestID := contextPkg.GetRequestID(c)
	now := time.Now()

	var processedAt interface{}
	if status == entity.UploadStatusProcessed {
		processedAt = now
	}

	query, args, err := sqlx.Named(queryUpdateUploadStatus, map[string]interface{}{
		"id":           id,
		"status":       string(status),
		"updated_at":   now,
		"processed_at": processedAt,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateUploadStatus named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  id,
			"error":      err.Error(),
		}).Error("UpdateUploadStatus execution err")
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return upload.ErrUploadNotFound
	}

	return nil
}

// ClaimForProcessing flips the upload to processing unless another run holds
// it. It reports false when the upload is already being processed.
func (r *uploadRepository) ClaimForProcessing(c context.Context, id string) (bool, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryClaimForProcessing, map[string]interface{}{
		"id":         id,
		"updated_at": time.Now(),
	})
	if err != nil {
		return false, err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  id,
			"error":      err.Error(),
		}).Error("ClaimForProcessing execution err")
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *uploadRepository) InsertStagedRows(c context.Context, dataset detector.Dataset, rows []entity.StagedRow) (int, error) {
	requestID := contextPkg.GetRequestID(c)
	inserted := 0

	for _, batch := range chunks(rows, r.batchSize) {
		argsKV := make([]map[string]interface{}, 0, len(batch))
		for _, row := range batch {
			raw, err := jsoniter.Marshal(row.Payload)
			if err != nil {
				return inserted, err
			}
			argsKV = append(argsKV, map[string]interface{}{
				"upload_id": row.UploadID,
				"row_index": row.RowIndex,
				"entity":    string(dataset),
				"raw":       string(raw),
			})
		}

		query, args, err := sqlx.Named(queryInsertStagedRows, argsKV)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to build SQL query for InsertStagedRows")
			return inserted, err
		}
		query = r.q.Rebind(query)

		if _, err := r.q.ExecContext(c, query, args...); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"inserted":   inserted,
				"error":      err.Error(),
			}).Error("Database error when staging rows")
			return inserted, err
		}
		inserted += len(batch)
	}

	return inserted, nil
}

func (r *uploadRepository) GetStagedRows(c context.Context, uploadID string) ([]entity.StagedRow, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []StagedRowDB

	query, args, err := sqlx.Named(queryGetStagedRows, map[string]interface{}{"upload_id": uploadID})
	if err != nil {
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"upload_id":  uploadID,
			"error":      err.Error(),
		}).Error("GetStagedRows execution err")
		return nil, err
	}

	result := make([]entity.StagedRow, 0, len(rows))
	for _, row := range rows {
		payload := map[string]string{}
		if err := jsoniter.Unmarshal(row.Raw, &payload); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"upload_id":  uploadID,
				"row_index":  row.RowIndex.Int64,
				"error":      err.Error(),
			}).Warn("Staged row is not a flat JSON object")
			continue
		}
		result = append(result, entity.StagedRow{
			UploadID: row.UploadID.String,
			RowIndex: int(row.RowIndex.Int64),
			Payload:  payload,
		})
	}

	return result, nil
}

func makeUpload(row UploadDB) entity.Upload {
	u := entity.Upload{
		ID:         row.ID.String,
		Filename:   row.Filename.String,
		Dataset:    detector.Dataset(row.Dataset.String),
		Status:     entity.UploadStatus(row.Status.String),
		SizeBytes:  row.SizeBytes.Int64,
		StagedRows: int(row.StagedRows.Int64),
		ArchiveURL: row.ArchiveURL.String,
		DetectedBy: detector.Source(row.DetectedBy.String),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.ProcessedAt.Valid {
		t := row.ProcessedAt.Time
		u.ProcessedAt = &t
	}
	return u
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
