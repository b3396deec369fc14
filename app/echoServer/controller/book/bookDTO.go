package book

type CreateBookReq struct {
	Title        string `json:"title" validate:"required"`
	Genre        string `json:"genre"`
	MinYearGroup int    `json:"min_year_group" validate:"gte=0,lte=13"`
}

type AddCopiesReq struct {
	Count int `json:"count" validate:"required,gt=0"`
}

type SetCopyStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE ON_LOAN DECOMMISSIONED"`
}
