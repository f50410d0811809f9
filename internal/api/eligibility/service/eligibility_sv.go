package eligibilityService

import (
	"strings"

	"AirlineETL/internal/api/eligibility"
	contextPkg "AirlineETL/pkg/context"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const acknowledgement = "Thank you! Your details have been received. We will be in touch about your insurance eligibility."

// Check acknowledges a validated form. Nothing is stored.
func (s *eligibilityService) Check(ctx context.Context, req eligibility.CheckRequest) (eligibility.CheckResponse, error) {
	if len(strings.TrimSpace(req.FullName)) < 2 {
		return eligibility.CheckResponse{}, eligibility.ErrBlankName
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
	}).Info("Eligibility form accepted")

	return eligibility.CheckResponse{Message: acknowledgement}, nil
}
