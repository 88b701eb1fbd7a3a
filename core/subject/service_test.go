package subject_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsfaye/sims/core/subject"
	inmemdb "github.com/tsfaye/sims/storage/database/inmem"
	testutil "github.com/tsfaye/sims/tests"
)

func setup(t *testing.T) (*subject.Service, *inmemdb.DB) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return subject.NewService(db, testutil.NopLogger{}), db
}

func intPtr(i int) *int { return &i }

func TestService_DeactivateByCode(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	g1 := testutil.CreateSubject(t, db, "MATH", "Mathematics", 1, true)
	g2 := testutil.CreateSubject(t, db, "MATH", "Mathematics", 2, true)
	other := testutil.CreateSubject(t, db, "ENG", "English", 1, true)
	already := testutil.CreateSubject(t, db, "MATH", "Mathematics", 3, false)

	n, err := svc.DeactivateByCode(ctx, "MATH", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "only active rows count as changed")

	for _, id := range []int{g1.ID, g2.ID, already.ID} {
		sub, err := svc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, sub.IsActive)
	}

	// rows of other codes are untouched
	sub, err := svc.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsActive)
}

func TestService_DeactivateByCode_gradeRestricted(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	g1 := testutil.CreateSubject(t, db, "MATH", "Mathematics", 1, true)
	g2 := testutil.CreateSubject(t, db, "MATH", "Mathematics", 2, true)

	n, err := svc.DeactivateByCode(ctx, "MATH", intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sub, _ := svc.GetByID(ctx, g1.ID)
	assert.False(t, sub.IsActive)
	sub, _ = svc.GetByID(ctx, g2.ID)
	assert.True(t, sub.IsActive)
}

func TestService_DeactivateByCode_emptyCode(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.DeactivateByCode(context.Background(), "  ", nil)
	require.Error(t, err)
}

func TestService_EnsureCatalog_createsMissing(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	changes, err := svc.EnsureCatalog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, changes, len(subject.GradeCatalog[1]))
	for _, change := range changes {
		assert.Equal(t, "created", change.Action)
		assert.Equal(t, subject.CodeForName(1, change.Subject.Name), change.Subject.Code)
		assert.Equal(t, subject.TypeCore, change.Subject.SubjectType)
		assert.True(t, change.Subject.IsActive)
	}

	// idempotent: a second run changes nothing
	changes, err = svc.EnsureCatalog(ctx, 1)
	require.NoError(t, err)
	for _, change := range changes {
		assert.Equal(t, "exists", change.Action)
	}
}

func TestService_EnsureCatalog_normalizesAndDeactivates(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	// wrong code and inactive: must be normalized back
	testutil.CreateSubject(t, db, "OLD_CODE", "English", 2, false)
	// slated for removal at grade 2
	stale := testutil.CreateSubject(t, db, "G2_SCIENC", "Science", 2, true)

	changes, err := svc.EnsureCatalog(ctx, 2)
	require.NoError(t, err)

	byName := map[string]subject.CatalogChange{}
	for _, change := range changes {
		byName[change.Subject.Name] = change
	}

	require.Contains(t, byName, "English")
	assert.Equal(t, "updated", byName["English"].Action)
	assert.Equal(t, subject.CodeForName(2, "English"), byName["English"].Subject.Code)
	assert.True(t, byName["English"].Subject.IsActive)

	require.Contains(t, byName, "Science")
	assert.Equal(t, "deactivated", byName["Science"].Action)
	sub, err := svc.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, sub.IsActive)
}

func TestService_EnsureCatalog_unknownGrade(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.EnsureCatalog(context.Background(), 99)
	require.Error(t, err)
}

func TestCodeForName(t *testing.T) {
	tests := []struct {
		grade int
		name  string
		want  string
	}{
		{1, "Amharic", "G1_AMHARI"},
		{1, "English", "G1_ENGLIS"},
		{7, "Mathematics", "G7_MATHEM"},
		{1, "Health and Physical Education", "G1_HEALTH"},
		{1, "Moral Education", "G1_MORALE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subject.CodeForName(tt.grade, tt.name))
		})
	}
}

func TestService_Waitlist(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	sub := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)

	e1, err := svc.Enqueue(ctx, sub.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Position)

	e2, err := svc.Enqueue(ctx, sub.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, e2.Position)

	// enqueueing twice is a no-op
	again, err := svc.Enqueue(ctx, sub.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, e1.Position, again.Position)

	entries, err := svc.Waitlist(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].StudentID)

	require.NoError(t, svc.Dequeue(ctx, sub.ID, 10))
	err = svc.Dequeue(ctx, sub.ID, 10)
	assert.Equal(t, subject.ErrNotWaitlisted, err)
}

func TestService_AssignTeacher(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	s1 := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)
	s2 := testutil.CreateSubject(t, db, "G1_AMHARI", "Amharic", 1, true)

	assigned, err := svc.AssignTeacher(ctx, 7, s1.ID, s2.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	for _, sub := range assigned {
		require.NotNil(t, sub.TeacherID)
		assert.Equal(t, 7, *sub.TeacherID)
	}

	n, err := svc.UnassignAllFromTeacher(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sub, err := svc.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Nil(t, sub.TeacherID)
}
