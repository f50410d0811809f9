package eligibility

import (
	"net/http"

	"AirlineETL/pkg/response"
)

var (
	ErrBlankName = response.NewError(http.StatusBadRequest, "full name must not be blank")
)
