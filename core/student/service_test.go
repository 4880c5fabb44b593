package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feeportal/core"
	"github.com/trezcool/feeportal/core/student"
	"github.com/trezcool/feeportal/tests"
)

func strPtr(s string) *string { return &s }

func TestService_ListAll(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStack()

	students, err := s.StudentSvc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)

	_, ada := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")
	_, bob := s.CreateUser(t, "Bob", "bob@test.cd", "pw123456")

	students, err = s.StudentSvc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []student.Student{ada, bob}, students)
}

func TestService_GetOwn(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStack()
	usr, st := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")

	got, err := s.StudentSvc.GetOwn(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, usr.ID, got.UserID)

	_, err = s.StudentSvc.GetOwn(ctx, "unknown")
	assert.ErrorIs(t, err, student.ErrNotFound)
	assert.True(t, core.IsNotFound(err))
}

func TestService_UpdateOwn(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStack()
	usr, st := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")

	tests := []struct {
		name       string
		userID     string
		us         student.UpdateStudent
		want       student.Student
		wantFields map[string]string
		notFound   bool
	}{
		{name: "no changes", userID: usr.ID, want: st},
		{
			name: "blank name", userID: usr.ID, us: student.UpdateStudent{Name: strPtr("   ")},
			wantFields: map[string]string{"name": "this field cannot be blank"},
		},
		{
			name: "invalid email", userID: usr.ID, us: student.UpdateStudent{Email: strPtr("nope")},
			wantFields: map[string]string{"email": "email must be a valid email address"},
		},
		{name: "unknown user", userID: "unknown", us: student.UpdateStudent{Name: strPtr("X")}, notFound: true},
		{
			name: "name only", userID: usr.ID, us: student.UpdateStudent{Name: strPtr("  Ada L. ")},
			want: func() student.Student { c := st; c.Name = "Ada L."; return c }(),
		},
		{
			name: "email only", userID: usr.ID, us: student.UpdateStudent{Email: strPtr(" ADA.L@Test.cd")},
			want: func() student.Student { c := st; c.Name = "Ada L."; c.Email = "ada.l@test.cd"; return c }(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.StudentSvc.UpdateOwn(ctx, tt.userID, tt.us)
			switch {
			case tt.wantFields != nil:
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantFields, vErr.FieldMap())
			case tt.notFound:
				assert.ErrorIs(t, err, student.ErrNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)

				stored, err := s.StudentSvc.GetOwn(ctx, tt.userID)
				require.NoError(t, err)
				assert.Equal(t, tt.want, stored)
			}
		})
	}

	// fees are not writable through profile updates
	got, _ := s.StudentSvc.GetOwn(ctx, usr.ID)
	assert.False(t, got.FeesPaid)
	assert.Equal(t, int64(5000), got.FeeAmount)
}

func TestService_MarkPaid(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStack()
	usr, _ := s.CreateUser(t, "Ada", "ada@test.cd", "pw123456")

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600))
	got, err := s.StudentSvc.MarkPaid(ctx, usr.ID, first)
	require.NoError(t, err)
	assert.True(t, got.FeesPaid)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, first.Equal(*got.PaymentDate))
	assert.Equal(t, time.UTC, got.PaymentDate.Location())

	// first payment wins
	got, err = s.StudentSvc.MarkPaid(ctx, usr.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.FeesPaid)
	assert.True(t, first.Equal(*got.PaymentDate))

	// a single receipt is sent
	sent := s.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@test.cd", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "We received your payment of 5000 on 2024-03-01 09:00 UTC.")

	_, err = s.StudentSvc.MarkPaid(ctx, "unknown", first)
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestStudent_Matches(t *testing.T) {
	st := student.Student{Name: "Ada Lovelace", Email: "ada@test.cd"}
	for term, want := range map[string]bool{
		"":         true,
		"  ":       true,
		"LOVE":     true,
		"ada@":     true,
		"TEST.CD ": true,
		"bob":      false,
	} {
		assert.Equal(t, want, st.Matches(term), "term %q", term)
	}
}
