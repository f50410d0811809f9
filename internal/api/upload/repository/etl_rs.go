package uploadRepository

import (
	"context"
	"time"

	"AirlineETL/internal/entity"
	"AirlineETL/internal/etl"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/detector"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func (r *etlRepository) CreateRun(c context.Context, run entity.EtlRun) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryCreateRun, map[string]interface{}{
		"id":         run.ID,
		"upload_id":  nullString(run.UploadID),
		"job_name":   "upload_" + string(run.Dataset),
		"dataset":    string(run.Dataset),
		"status":     string(run.Status),
		"note":       nullString(run.Message),
		"started_at": run.StartedAt,
	})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Error("Database error when creating etl run")
		return err
	}

	return nil
}

func (r *etlRepository) UpdateRun(c context.Context, run entity.EtlRun) error {
	requestID := contextPkg.GetRequestID(c)

	var finishedAt interface{}
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	query, args, err := sqlx.Named(queryUpdateRun, map[string]interface{}{
		"id":          run.ID,
		"status":      string(run.Status),
		"note":        nullString(run.Message),
		"processed":   run.Processed,
		"failed":      run.Failed,
		"finished_at": finishedAt,
	})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     run.ID,
			"status":     run.Status,
			"error":      err.Error(),
		}).Error("Database error when updating etl run")
		return err
	}

	return nil
}

// UpsertCleanedRecords writes rows keyed by (dataset, business key) in
// batches. Rows must not repeat a key within one call.
func (r *etlRepository) UpsertCleanedRecords(c context.Context, dataset detector.Dataset, uploadID string, rows []etl.CleanedRow) (int, error) {
	requestID := contextPkg.GetRequestID(c)
	now := time.Now()
	written := 0

	for _, batch := range chunks(rows, r.batchSize) {
		argsKV := make([]map[string]interface{}, 0, len(batch))
		for _, row := range batch {
			fields, err := jsoniter.Marshal(row.Fields)
			if err != nil {
				return written, err
			}
			raw, err := jsoniter.Marshal(row.Raw)
			if err != nil {
				return written, err
			}
			argsKV = append(argsKV, map[string]interface{}{
				"dataset":      string(dataset),
				"business_key": row.Key,
				"upload_id":    uploadID,
				"fields":       string(fields),
				"raw_json":     string(raw),
				"created_at":   now,
				"updated_at":   now,
			})
		}

		query, args, err := sqlx.Named(queryUpsertCleanedRecords, argsKV)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to build SQL query for UpsertCleanedRecords")
			return written, err
		}
		query = r.q.Rebind(query)

		if _, err := r.q.ExecContext(c, query, args...); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"dataset":    dataset,
				"written":    written,
				"error":      err.Error(),
			}).Error("Database error when upserting cleaned records")
			return written, err
		}
		written += len(batch)
	}

	return written, nil
}

func (r *etlRepository) InsertImportErrors(c context.Context, sourceTable string, errs []entity.ImportError) error {
	requestID := contextPkg.GetRequestID(c)

	for _, batch := range chunks(errs, r.batchSize) {
		argsKV := make([]map[string]interface{}, 0, len(batch))
		for _, e := range batch {
			raw, err := jsoniter.Marshal(e.Raw)
			if err != nil {
				return err
			}
			argsKV = append(argsKV, map[string]interface{}{
				"run_id":        nullString(e.RunID),
				"source_table":  sourceTable,
				"row_index":     e.RowIndex,
				"raw":           string(raw),
				"error_message": e.Message,
			})
		}

		query, args, err := sqlx.Named(queryInsertImportErrors, argsKV)
		if err != nil {
			return err
		}
		query = r.q.Rebind(query)

		if _, err := r.q.ExecContext(c, query, args...); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Database error when recording import errors")
			return err
		}
	}

	return nil
}
