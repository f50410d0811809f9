package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"AirlineETL/internal/entity"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("redis: key not found")

const (
	DefaultDetectionTTL = 24 * time.Hour
	progressTTL         = 6 * time.Hour
)

type IRedis interface {
	SetDetection(ctx context.Context, uploadID string, detection entity.Detection) error
	GetDetection(ctx context.Context, uploadID string) (entity.Detection, error)
	SetProgress(ctx context.Context, progress entity.Progress) error
	GetProgress(ctx context.Context, uploadID string) (entity.Progress, error)
}

type redisClient struct {
	client       *redis.Client
	detectionTTL time.Duration
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	ttl, err := time.ParseDuration(os.Getenv("DETECTION_TTL"))
	if err != nil || ttl <= 0 {
		ttl = DefaultDetectionTTL
	}

	return NewWithClient(client, ttl)
}

func NewWithClient(client *redis.Client, detectionTTL time.Duration) IRedis {
	if detectionTTL <= 0 {
		detectionTTL = DefaultDetectionTTL
	}
	return &redisClient{client: client, detectionTTL: detectionTTL}
}

func detectionKey(uploadID string) string {
	return "upload:" + uploadID + ":detection"
}

func progressKey(uploadID string) string {
	return "upload:" + uploadID + ":progress"
}

func (r *redisClient) SetDetection(ctx context.Context, uploadID string, detection entity.Detection) error {
	return r.setJSON(ctx, detectionKey(uploadID), detection, r.detectionTTL)
}

func (r *redisClient) GetDetection(ctx context.Context, uploadID string) (entity.Detection, error) {
	var detection entity.Detection
	err := r.getJSON(ctx, detectionKey(uploadID), &detection)
	return detection, err
}

func (r *redisClient) SetProgress(ctx context.Context, progress entity.Progress) error {
	return r.setJSON(ctx, progressKey(progress.UploadID), progress, progressTTL)
}

func (r *redisClient) GetProgress(ctx context.Context, uploadID string) (entity.Progress, error) {
	var progress entity.Progress
	err := r.getJSON(ctx, progressKey(uploadID), &progress)
	return progress, err
}

func (r *redisClient) setJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	payload, err := jsoniter.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	logrus.Debug(fmt.Sprintf("Setting key %s with expiration %v", key, expiration))
	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) getJSON(ctx context.Context, key string, dest any) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Key %s not found", key))
		return ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting key %s: %v", key, err))
		return err
	}

	if err := jsoniter.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
