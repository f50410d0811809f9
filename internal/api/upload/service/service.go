package uploadService

import (
	"mime/multipart"

	"AirlineETL/internal/api/upload"
	uploadRepository "AirlineETL/internal/api/upload/repository"
	"AirlineETL/internal/entity"
	"AirlineETL/pkg/redis"
	"AirlineETL/pkg/s3"
	"AirlineETL/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IUploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, dataset string) (upload.UploadResponse, error)
	Detect(ctx context.Context, file *multipart.FileHeader) (upload.DetectResponse, error)
	Process(ctx context.Context, uploadID string, req upload.ProcessRequest) (upload.ProcessResponse, error)
	GetUpload(ctx context.Context, uploadID string) (upload.StatusResponse, error)
	Progress(ctx context.Context, uploadID string) (entity.Progress, error)
	Convert(ctx context.Context, file *multipart.FileHeader) (upload.ConvertResult, error)
}

type Config struct {
	StoreUploads bool
	BatchSize    int
}

type uploadService struct {
	log              *logrus.Logger
	uploadRepository uploadRepository.Repository
	redis            redis.IRedis
	s3               s3.ItfS3
	utils            utils.IUtils
	cfg              Config
}

// NewUploadService wires the upload pipeline. s3Client may be nil, in which
// case originals are never archived.
func NewUploadService(
	log *logrus.Logger,
	ur uploadRepository.Repository,
	redisClient redis.IRedis,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	cfg Config,
) IUploadService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = uploadRepository.DefaultBatchSize
	}
	return &uploadService{
		log:              log,
		uploadRepository: ur,
		redis:            redisClient,
		s3:               s3Client,
		utils:            utils,
		cfg:              cfg,
	}
}
