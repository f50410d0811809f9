package uploadRepository

import (
	"AirlineETL/internal/entity"
	"AirlineETL/internal/etl"
	"AirlineETL/pkg/detector"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger, batchSize int) Repository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &repository{
		DB:        db,
		log:       log,
		batchSize: batchSize,
	}
}

const DefaultBatchSize = 200

type repository struct {
	DB        *sqlx.DB
	log       *logrus.Logger
	batchSize int
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Upload:   &uploadRepository{q: sqlExecutor, log: r.log, batchSize: r.batchSize},
		Etl:      &etlRepository{q: sqlExecutor, log: r.log, batchSize: r.batchSize},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Upload interface {
		CreateUpload(ctx context.Context, upload entity.Upload) error
		GetUploadByID(ctx context.Context, id string) (entity.Upload, error)
		UpdateUploadStatus(ctx context.Context, id string, status entity.UploadStatus) error
		ClaimForProcessing(ctx context.Context, id string) (bool, error)
		InsertStagedRows(ctx context.Context, dataset detector.Dataset, rows []entity.StagedRow) (int, error)
		GetStagedRows(ctx context.Context, uploadID string) ([]entity.StagedRow, error)
	}

	Etl interface {
		CreateRun(ctx context.Context, run entity.EtlRun) error
		UpdateRun(ctx context.Context, run entity.EtlRun) error
		UpsertCleanedRecords(ctx context.Context, dataset detector.Dataset, uploadID string, rows []etl.CleanedRow) (int, error)
		InsertImportErrors(ctx context.Context, sourceTable string, errs []entity.ImportError) error
	}

	Commit   func() error
	Rollback func() error
}

type uploadRepository struct {
	q         SQLExecutor
	log       *logrus.Logger
	batchSize int
}

type etlRepository struct {
	q         SQLExecutor
	log       *logrus.Logger
	batchSize int
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
