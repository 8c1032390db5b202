package student

// CreateStudentRequest represents the request body for enrolling a student
type CreateStudentRequest struct {
	AdmissionNo string `json:"admission_no" validate:"required,max=50"`
	FullName    string `json:"full_name" validate:"required,max=200"`
	Class       string `json:"class" validate:"required,max=50"`
	Section     string `json:"section" validate:"required,max=20,ne=ALL"`
}

// UpdateStudentRequest represents the request body for moving or withdrawing a student
type UpdateStudentRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Class    *string `json:"class,omitempty" validate:"omitempty,max=50"`
	Section  *string `json:"section,omitempty" validate:"omitempty,max=20,ne=ALL"`
	Active   *bool   `json:"active,omitempty"`
}

// ListFilter narrows roster listings
type ListFilter struct {
	Class      string
	Section    string
	Search     string
	ActiveOnly bool
}

// StudentResponse represents the response for a single student
type StudentResponse struct {
	ID          int64  `json:"id"`
	AdmissionNo string `json:"admission_no"`
	FullName    string `json:"full_name"`
	Class       string `json:"class"`
	Section     string `json:"section"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

// ToResponse converts a Student model to a StudentResponse DTO
func (s *Student) ToResponse() *StudentResponse {
	return &StudentResponse{
		ID:          s.ID,
		AdmissionNo: s.AdmissionNo,
		FullName:    s.FullName,
		Class:       s.Class,
		Section:     s.Section,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
