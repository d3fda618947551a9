package models

// DuplicateGroup is a runtime-computed cluster of student records sharing a
// normalised email. It is derived at read time and never persisted. The keep
// record is the most recently created member; the rest are duplicates in
// creation-descending order.
type DuplicateGroup struct {
	Email             string    `json:"email"`
	Count             int       `json:"count"`
	Keep              Student   `json:"keep"`
	Duplicates        []Student `json:"duplicates"`
	HasSiblingGroup   bool      `json:"has_sibling_group"`
	HasRecentActivity bool      `json:"has_recent_activity"`
}
