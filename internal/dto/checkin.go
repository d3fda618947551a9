package dto

// CheckInRequest records a teacher arriving at a class site.
type CheckInRequest struct {
	ClassID   string  `json:"class_id" validate:"required,uuid4"`
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// CheckOutRequest closes the teacher's open check-in.
type CheckOutRequest struct {
	CheckinID string `json:"checkin_id" validate:"required,uuid4"`
}
