package student

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/feeledger/pkg/validate"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), validate.New())
}

func enroll(t *testing.T, svc *Service, schoolID int64, adm, name, class, section string) *Student {
	t.Helper()
	st, err := svc.Create(context.Background(), schoolID, &CreateStudentRequest{
		AdmissionNo: adm, FullName: name, Class: class, Section: section,
	})
	require.NoError(t, err)
	return st
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateStudentRequest
		wantErr error
	}{
		{"missing name", CreateStudentRequest{AdmissionNo: "A1", Class: "Grade 1", Section: "A"}, validate.ErrInvalidInput},
		{"wildcard section", CreateStudentRequest{AdmissionNo: "A1", FullName: "X", Class: "Grade 1", Section: "ALL"}, validate.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	enroll(t, svc, 1, "A1", "Wanjiru Kamau", "Grade 1", "A")
	_, err := svc.Create(ctx, 1, &CreateStudentRequest{AdmissionNo: "A1", FullName: "Other", Class: "Grade 1", Section: "B"})
	assert.ErrorIs(t, err, ErrAdmissionNoInUse)

	// admission numbers are unique per school only
	enroll(t, svc, 2, "A1", "Baraka Mwangi", "Grade 1", "A")
}

func TestListEnrolled(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	enroll(t, svc, 1, "1", "Achieng", "Grade 2", "A")
	enroll(t, svc, 1, "2", "Kiprono", "Grade 2", "B")
	withdrawn := enroll(t, svc, 1, "3", "Njeri", "Grade 2", "A")
	enroll(t, svc, 1, "4", "Otieno", "Grade 3", "A")
	enroll(t, svc, 2, "5", "Other school", "Grade 2", "A")

	inactive := false
	_, err := svc.Update(ctx, 1, withdrawn.ID, &UpdateStudentRequest{Active: &inactive})
	require.NoError(t, err)

	tests := []struct {
		section string
		want    []string
	}{
		{"ALL", []string{"Achieng", "Kiprono"}},
		{"A", []string{"Achieng"}},
		{"B", []string{"Kiprono"}},
		{"C", nil},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			students, err := svc.ListEnrolled(ctx, 1, "Grade 2", tt.section)
			require.NoError(t, err)
			var names []string
			for _, s := range students {
				names = append(names, s.FullName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGetAndUpdateScopedToSchool(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	st := enroll(t, svc, 1, "1", "Achieng", "Grade 2", "A")

	_, err := svc.GetByID(ctx, 2, st.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	class := "Grade 3"
	_, err = svc.Update(ctx, 2, st.ID, &UpdateStudentRequest{Class: &class})
	assert.ErrorIs(t, err, ErrStudentNotFound)

	moved, err := svc.Update(ctx, 1, st.ID, &UpdateStudentRequest{Class: &class})
	require.NoError(t, err)
	assert.Equal(t, "Grade 3", moved.Class)
	assert.Equal(t, "A", moved.Section)
}

func TestListPagination(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Zawadi", "Amani", "Imani", "Baraka"} {
		enroll(t, svc, 1, name, name, "Grade 1", "A")
	}

	page, total, err := svc.List(ctx, 1, ListFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Imani", page[0].FullName)
	assert.Equal(t, "Zawadi", page[1].FullName)

	found, _, err := svc.List(ctx, 1, ListFilter{Search: "ARA"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Baraka", found[0].FullName)
}
