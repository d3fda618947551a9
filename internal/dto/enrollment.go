package dto

// AssignToBatchRequest places students into a cohort.
type AssignToBatchRequest struct {
	BatchID    string   `json:"batch_id" validate:"required,uuid4"`
	ProfileIDs []string `json:"profile_ids" validate:"required,min=1,dive,uuid4"`
}

// TransferBatchRequest moves students between cohorts.
type TransferBatchRequest struct {
	FromBatchID string   `json:"from_batch_id" validate:"required,uuid4"`
	ToBatchID   string   `json:"to_batch_id" validate:"required,uuid4,nefield=FromBatchID"`
	ProfileIDs  []string `json:"profile_ids" validate:"required,min=1,dive,uuid4"`
}
