package uploadRepository

const (
	queryCreateUpload = `
		INSERT INTO uploads (
			id,
			filename,
			dataset,
			status,
			size_bytes,
			staged_rows,
			archive_url,
			detected_by,
			created_at,
			updated_at
		) VALUES (
			:id,
			:filename,
			:dataset,
			:status,
			:size_bytes,
			:staged_rows,
			:archive_url,
			:detected_by,
			:created_at,
			:updated_at
		)
	`

	queryGetUploadByID = `
		SELECT
			id,
			filename,
			dataset,
			status,
			size_bytes,
			staged_rows,
			archive_url,
			detected_by,
			created_at,
			updated_at,
			processed_at
		FROM uploads
		WHERE id = :id
	`

	queryUpdateUploadStatus = `
		UPDATE uploads
		SET
			status = :status,
			updated_at = :updated_at,
			processed_at = COALESCE(:processed_at, processed_at)
		WHERE id = :id
	`

	queryClaimForProcessing = `
		UPDATE uploads
		SET
			status = 'processing',
			updated_at = :updated_at
		WHERE id = :id
			AND status <> 'processing'
	`

	queryInsertStagedRows = `
		INSERT INTO staging_raw (
			upload_id,
			row_index,
			entity,
			raw
		) VALUES (
			:upload_id,
			:row_index,
			:entity,
			:raw
		)
	`

	queryGetStagedRows = `
		SELECT
			upload_id,
			row_index,
			raw
		FROM staging_raw
		WHERE upload_id = :upload_id
		ORDER BY row_index
	`

	queryCreateRun = `
		INSERT INTO etl_runs (
			id,
			upload_id,
			job_name,
			dataset,
			status,
			note,
			started_at
		) VALUES (
			:id,
			:upload_id,
			:job_name,
			:dataset,
			:status,
			:note,
			:started_at
		)
	`

	queryUpdateRun = `
		UPDATE etl_runs
		SET
			status = :status,
			note = :note,
			processed = :processed,
			failed = :failed,
			finished_at = :finished_at
		WHERE id = :id
	`

	queryUpsertCleanedRecords = `
		INSERT INTO cleaned_records (
			dataset,
			business_key,
			upload_id,
			fields,
			raw_json,
			created_at,
			updated_at
		) VALUES (
			:dataset,
			:business_key,
			:upload_id,
			:fields,
			:raw_json,
			:created_at,
			:updated_at
		)
		ON CONFLICT (dataset, business_key) DO UPDATE SET
			upload_id = EXCLUDED.upload_id,
			fields = EXCLUDED.fields,
			raw_json = EXCLUDED.raw_json,
			updated_at = EXCLUDED.updated_at
	`

	queryInsertImportErrors = `
		INSERT INTO import_errors (
			run_id,
			source_table,
			row_index,
			raw,
			error_message
		) VALUES (
			:run_id,
			:source_table,
			:row_index,
			:raw,
			:error_message
		)
	`
)
