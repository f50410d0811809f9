package eligibility

type CheckRequest struct {
	FullName     string   `json:"full_name" validate:"required,min=2,max=100"`
	Age          *float64 `json:"age" validate:"required,gte=18,lte=100"`
	AnnualIncome *float64 `json:"annual_income" validate:"required,gte=0"`
}

type CheckResponse struct {
	Message string `json:"message"`
}
