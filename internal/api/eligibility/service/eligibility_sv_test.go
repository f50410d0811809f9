package eligibilityService

import (
	"io"
	"testing"

	"AirlineETL/internal/api/eligibility"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func newService() IEligibilityService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEligibilityService(logger)
}

func TestCheck_Acknowledges(t *testing.T) {
	age, income := 30.0, 0.0
	res, err := newService().Check(context.Background(), eligibility.CheckRequest{
		FullName:     "Siti Rahma",
		Age:          &age,
		AnnualIncome: &income,
	})
	require.NoError(t, err)
	assert.Equal(t, acknowledgement, res.Message)
}

func TestCheck_BlankName(t *testing.T) {
	age, income := 30.0, 10.0
	_, err := newService().Check(context.Background(), eligibility.CheckRequest{
		FullName:     "   a ",
		Age:          &age,
		AnnualIncome: &income,
	})
	assert.ErrorIs(t, err, eligibility.ErrBlankName)
}
