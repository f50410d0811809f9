package upload

import (
	"net/http"

	"AirlineETL/pkg/response"
)

var (
	ErrNoFile               = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrEmptyFile            = response.NewError(http.StatusBadRequest, "empty file uploaded")
	ErrUnsupportedExtension = response.NewError(http.StatusBadRequest, "unsupported file extension, allowed: .csv, .docx")
	ErrFileTooLarge         = response.NewError(http.StatusRequestEntityTooLarge, "file too large")
	ErrUnsupportedDataset   = response.NewError(http.StatusBadRequest, "unsupported dataset")
	ErrUnsupportedMediaType = response.NewError(http.StatusUnsupportedMediaType, "unsupported or unrecognized file type")
	ErrConvertFailed        = response.NewError(http.StatusBadRequest, "docx conversion failed")
	ErrUnreadableFile       = response.NewError(http.StatusUnprocessableEntity, "file could not be parsed")
	ErrNoRows               = response.NewError(http.StatusUnprocessableEntity, "file contains no data rows")
	ErrUploadNotFound       = response.NewError(http.StatusNotFound, "upload not found")
	ErrAlreadyProcessing    = response.NewError(http.StatusConflict, "upload is already being processed")
	ErrStageUpload          = response.NewError(http.StatusInternalServerError, "failed to stage upload")
	ErrProcessUpload        = response.NewError(http.StatusInternalServerError, "failed to process upload")
)
