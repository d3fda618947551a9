package dto

// DetectDuplicatesFilter narrows detection to one program when set.
type DetectDuplicatesFilter struct {
	Program string `form:"program" validate:"omitempty,oneof=MAHAD DUGSI"`
}

// ResolveDuplicatesRequest collapses duplicate person records into one.
type ResolveDuplicatesRequest struct {
	KeepID    string   `json:"keep_id" validate:"required,uuid4"`
	DeleteIDs []string `json:"delete_ids" validate:"required,dive,uuid4"`
	MergeData bool     `json:"merge_data"`
}

// ResolveDuplicatesResult reports which records were removed so clients can
// reconcile local caches.
type ResolveDuplicatesResult struct {
	KeepID     string   `json:"keep_id"`
	DeletedIDs []string `json:"deleted_ids"`
	Merged     bool     `json:"merged"`
}
