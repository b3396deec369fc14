package reservation

type ReserveReq struct {
	ReaderID int64 `json:"reader_id" validate:"required,gt=0"`
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
}
