package eligibilityService

import (
	"AirlineETL/internal/api/eligibility"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IEligibilityService interface {
	Check(ctx context.Context, req eligibility.CheckRequest) (eligibility.CheckResponse, error)
}

type eligibilityService struct {
	log *logrus.Logger
}

func NewEligibilityService(log *logrus.Logger) IEligibilityService {
	return &eligibilityService{log: log}
}
