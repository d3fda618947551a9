package models

import "time"

// Program identifies which of the institution's programs a profile belongs to.
type Program string

const (
	ProgramMahad Program = "MAHAD"
	ProgramDugsi Program = "DUGSI"
)

// Valid returns true when the program is a supported value.
func (p Program) Valid() bool {
	return p == ProgramMahad || p == ProgramDugsi
}

// Person is an identity record. People are referenced by relationship edges
// and program profiles, never owned by them.
type Person struct {
	ID            string     `db:"id" json:"id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Address       *string    `db:"address" json:"address,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	GuardianName  *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ProgramProfile is a person's enrollment identity within one program.
type ProgramProfile struct {
	ID        string    `db:"id" json:"id"`
	PersonID  string    `db:"person_id" json:"person_id"`
	Program   Program   `db:"program" json:"program"`
	FamilyID  *string   `db:"family_id" json:"family_id,omitempty"`
	BatchID   *string   `db:"batch_id" json:"batch_id,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Student is the read projection joining a program profile with its person,
// used for listings and duplicate detection.
type Student struct {
	ProfileID    string    `db:"profile_id" json:"profile_id"`
	PersonID     string    `db:"person_id" json:"person_id"`
	Program      Program   `db:"program" json:"program"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	FamilyID     *string   `db:"family_id" json:"family_id,omitempty"`
	BatchID      *string   `db:"batch_id" json:"batch_id,omitempty"`
	Status       string    `db:"status" json:"status"`
	SiblingCount int       `db:"sibling_count" json:"sibling_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Program   Program
	BatchID   string
	FamilyID  string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
