package upload

import (
	"time"

	"AirlineETL/internal/entity"
	"AirlineETL/pkg/detector"
)

type UploadResponse struct {
	UploadID   string           `json:"upload_id"`
	Dataset    detector.Dataset `json:"dataset"`
	Filename   string           `json:"filename"`
	Staged     int              `json:"staged"`
	Tokens     []string         `json:"tokens"`
	Warnings   []string         `json:"warnings"`
	Source     detector.Source  `json:"source"`
	ArchiveURL string           `json:"archive_url,omitempty"`
}

type DetectResponse struct {
	Dataset detector.Dataset    `json:"dataset"`
	Tokens  []string            `json:"tokens"`
	Scores  detector.ScoreTable `json:"scores"`
	Source  detector.Source     `json:"source"`
}

type ProcessRequest struct {
	Dataset string `json:"dataset" validate:"omitempty,max=32"`
}

type ProcessResponse struct {
	UploadID   string           `json:"upload_id"`
	Dataset    detector.Dataset `json:"dataset"`
	Processed  int              `json:"processed"`
	Errors     int              `json:"errors"`
	Duplicates int              `json:"duplicates"`
	RunID      string           `json:"run_id"`
}

type StatusResponse struct {
	UploadID    string           `json:"upload_id"`
	Filename    string           `json:"filename"`
	Dataset     detector.Dataset `json:"dataset"`
	Status      string           `json:"status"`
	SizeBytes   int64            `json:"size_bytes"`
	StagedRows  int              `json:"staged_rows"`
	DetectedBy  detector.Source  `json:"detected_by"`
	ArchiveURL  string           `json:"archive_url,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	ProcessedAt string           `json:"processed_at,omitempty"`
	Progress    *entity.Progress `json:"progress,omitempty"`
}

type ConvertResult struct {
	Filename string
	CSV      string
}

func NewStatusResponse(u entity.Upload, progress *entity.Progress) StatusResponse {
	res := StatusResponse{
		UploadID:   u.ID,
		Filename:   u.Filename,
		Dataset:    u.Dataset,
		Status:     string(u.Status),
		SizeBytes:  u.SizeBytes,
		StagedRows: u.StagedRows,
		DetectedBy: u.DetectedBy,
		ArchiveURL: u.ArchiveURL,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  u.UpdatedAt.Format(time.RFC3339),
		Progress:   progress,
	}
	if u.ProcessedAt != nil {
		res.ProcessedAt = u.ProcessedAt.Format(time.RFC3339)
	}
	return res
}
