package student

import "time"

// Student represents an enrolled student in a school
type Student struct {
	ID          int64     `json:"id" db:"id"`
	SchoolID    int64     `json:"school_id" db:"school_id"`
	AdmissionNo string    `json:"admission_no" db:"admission_no"`
	FullName    string    `json:"full_name" db:"full_name"`
	Class       string    `json:"class" db:"class"`
	Section     string    `json:"section" db:"section"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AllSections is the wildcard section meaning every section of a class
const AllSections = "ALL"

// InScope reports whether the student belongs to class and section
func (s *Student) InScope(class, section string) bool {
	if s.Class != class {
		return false
	}
	return section == "" || section == AllSections || s.Section == section
}
