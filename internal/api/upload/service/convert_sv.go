package uploadService

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"AirlineETL/internal/api/upload"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/csvparse"
	"AirlineETL/pkg/docx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var docxContentTypes = []string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"application/octet-stream",
}

// Convert turns a docx into CSV, or hands CSV back unchanged.
func (s *uploadService) Convert(ctx context.Context, file *multipart.FileHeader) (upload.ConvertResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if file == nil {
		return upload.ConvertResult{}, upload.ErrNoFile
	}
	if file.Size > s.utils.MaxFileBytes() {
		return upload.ConvertResult{}, upload.ErrFileTooLarge
	}

	data, err := s.utils.ReadUploadFile(file)
	if err != nil {
		return upload.ConvertResult{}, mapFileError(err)
	}

	filename := file.Filename
	if filename == "" {
		filename = "uploaded"
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	if docx.IsDocx(data) && (isDocxName(filename) || isDocxContentType(file.Header.Get("Content-Type"))) {
		doc, err := docx.Read(data)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"filename":   filename,
				"error":      err.Error(),
			}).Warn("DOCX conversion failed")
			return upload.ConvertResult{}, fmt.Errorf("%w: %v", upload.ErrConvertFailed, err)
		}

		text, err := doc.CSV(false)
		if err != nil && !errors.Is(err, docx.ErrNoData) {
			return upload.ConvertResult{}, fmt.Errorf("%w: %v", upload.ErrConvertFailed, err)
		}
		return upload.ConvertResult{Filename: stem + ".csv", CSV: text}, nil
	}

	if csvparse.LooksLikeCSV(data) {
		text, err := csvparse.Decode(data)
		if err != nil {
			return upload.ConvertResult{}, fmt.Errorf("%w: %v", upload.ErrUnreadableFile, err)
		}
		name := filename
		if !strings.EqualFold(filepath.Ext(filename), ".csv") {
			name = "data.csv"
		}
		return upload.ConvertResult{Filename: name, CSV: text}, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"filename":     filename,
		"content_type": file.Header.Get("Content-Type"),
	}).Warn("Unrecognized file type for conversion")

	return upload.ConvertResult{}, upload.ErrUnsupportedMediaType
}

func isDocxContentType(ct string) bool {
	for _, allowed := range docxContentTypes {
		if strings.EqualFold(strings.TrimSpace(ct), allowed) {
			return true
		}
	}
	return false
}
