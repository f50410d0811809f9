package entity

import (
	"time"

	"AirlineETL/pkg/detector"
)

// DetectedByRequest marks uploads whose dataset was named by the caller.
const DetectedByRequest detector.Source = "request"

type UploadStatus string

const (
	UploadStatusStaged     UploadStatus = "staged"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusProcessed  UploadStatus = "processed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Terminal reports whether no further progress will be published.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusProcessed || s == UploadStatusFailed
}

type Upload struct {
	ID          string
	Filename    string
	Dataset     detector.Dataset
	Status      UploadStatus
	SizeBytes   int64
	StagedRows  int
	ArchiveURL  string
	DetectedBy  detector.Source
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

type StagedRow struct {
	UploadID string
	RowIndex int
	Payload  map[string]string
}

type RunStatus string

const (
	RunStatusStarted RunStatus = "started"
	RunStatusStaged  RunStatus = "staged"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type EtlRun struct {
	ID         string
	UploadID   string
	Dataset    detector.Dataset
	Status     RunStatus
	Message    string
	Processed  int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

type ImportError struct {
	RunID    string
	RowIndex int
	Raw      map[string]string
	Message  string
}

// Detection is what gets cached per upload so a later processing trigger
// can reuse the dataset without re-reading the file.
type Detection struct {
	Dataset detector.Dataset    `json:"dataset"`
	Tokens  []string            `json:"tokens"`
	Scores  detector.ScoreTable `json:"scores,omitempty"`
	Source  detector.Source     `json:"source"`
}

type Progress struct {
	UploadID  string       `json:"upload_id"`
	Status    UploadStatus `json:"status"`
	Percent   int          `json:"percent"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Total     int          `json:"total"`
	Message   string       `json:"message,omitempty"`
}
