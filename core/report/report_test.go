package report

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsfaye/sims/core/user"
	inmemdb "github.com/tsfaye/sims/storage/database/inmem"
	testutil "github.com/tsfaye/sims/tests"
)

func setup(t *testing.T) (*Builder, *inmemdb.DB) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return NewBuilder(db, db, db), db
}

func TestBuilder_userBreakdown(t *testing.T) {
	b, db := setup(t)

	testutil.CreateUser(t, db, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, db, "S One", "s1", "s1@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, db, "S Two", "s2", "s2@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, db, "Teacher", "teach", "teach@test.cd", "", []string{user.RoleTeacher}, true)

	doc, err := b.Build(context.Background(), Request{Type: TypeUserBreakdown, Format: FormatCSV})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)

	sec := doc.Sections[0]
	assert.Equal(t, []string{"Role", "Count"}, sec.Headers)
	require.Len(t, sec.Rows, 3, "one row per distinct role")

	// rows are sorted by role and counts sum to the role assignments
	var total int
	var prev string
	counts := map[string]string{}
	for _, row := range sec.Rows {
		require.Len(t, row, 2)
		assert.True(t, prev <= row[0], "rows must be sorted by role")
		prev = row[0]
		counts[row[0]] = row[1]
		switch row[1] {
		case "1":
			total++
		case "2":
			total += 2
		}
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, "2", counts[user.RoleStudent])
}

func TestBuilder_userBreakdown_multiRole(t *testing.T) {
	b, db := setup(t)

	// an all-roles admin lands in one bucket, under the highest-priority role
	testutil.CreateUser(t, db, "Boss", "boss", "boss@test.cd", "", user.AllRoles, true)
	testutil.CreateUser(t, db, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)

	doc, err := b.Build(context.Background(), Request{Type: TypeUserBreakdown})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)

	var sum int
	counts := map[string]string{}
	for _, row := range doc.Sections[0].Rows {
		counts[row[0]] = row[1]
		n, err := strconv.Atoi(row[1])
		require.NoError(t, err)
		sum += n
	}
	assert.Equal(t, 2, sum, "counts must sum to the total user count")
	assert.Equal(t, "1", counts[user.RoleAdminSuper])
	assert.Equal(t, "1", counts[user.RoleStudent])
}

func TestBuilder_studentPerformance(t *testing.T) {
	b, db := setup(t)

	stud := testutil.CreateUser(t, db, "Abebe Kebede", "abebe", "abebe@test.cd", "", []string{user.RoleStudent}, true)
	sub := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)
	testutil.CreateGrade(t, db, stud.ID, sub.ID, 88.5)

	doc, err := b.Build(context.Background(), Request{Type: TypeStudentPerformance})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Rows, 1)

	row := doc.Sections[0].Rows[0]
	assert.Equal(t, "Abebe Kebede", row[0])
	assert.Equal(t, "G1_ENGLIS", row[1])
	assert.Equal(t, "88.50", row[6])
}

func TestBuilder_feeCollection_dateBounds(t *testing.T) {
	b, db := setup(t)

	stud := testutil.CreateUser(t, db, "Student", "stud", "stud@test.cd", "", []string{user.RoleStudent}, true)
	now := time.Now()
	testutil.CreatePayment(t, db, stud.ID, 100, now.AddDate(0, -2, 0))
	testutil.CreatePayment(t, db, stud.ID, 250, now)

	from := now.AddDate(0, -1, 0)
	doc, err := b.Build(context.Background(), Request{Type: TypeFeeCollection, DateFrom: &from})
	require.NoError(t, err)

	rows := doc.Sections[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Total payments", "1"}, rows[0])
	assert.Equal(t, []string{"Amount collected", "250.00"}, rows[1])
}

func TestBuilder_allReports(t *testing.T) {
	b, db := setup(t)
	testutil.CreateUser(t, db, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	doc, err := b.Build(context.Background(), Request{Type: TypeAllReports})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "User Role Breakdown", doc.Sections[0].Title)
	assert.Equal(t, "Student Performance", doc.Sections[1].Title)
	assert.Equal(t, "Fee Collection Summary", doc.Sections[2].Title)
}

func TestBuilder_unknownTypeYieldsNotice(t *testing.T) {
	b, _ := setup(t)

	doc, err := b.Build(context.Background(), Request{Type: "enrollment_projections"})
	require.NoError(t, err, "an unknown type is a notice document, not an error")

	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Rows, 1)
	assert.Equal(t,
		`Report type "enrollment_projections" is not implemented yet.`,
		doc.Sections[0].Rows[0][0],
	)

	// the notice renders in every supported format
	for format, renderer := range DefaultRegistry() {
		blob, err := renderer.Render(doc)
		require.NoError(t, err, format)
		assert.NotEmpty(t, blob, format)
	}
}

func TestRequest_Validate_defaultsFormat(t *testing.T) {
	req := Request{Type: " User_Breakdown "}
	require.NoError(t, req.Validate())
	assert.Equal(t, TypeUserBreakdown, req.Type)
	assert.Equal(t, FormatCSV, req.Format)

	empty := Request{}
	err := empty.Validate()
	require.Error(t, err)
}

func TestTranscript(t *testing.T) {
	doc := Transcript("Abebe Kebede", nil)
	assert.Equal(t, "Transcript - Abebe Kebede", doc.Title)
	assert.Equal(t, "transcript_abebe_kebede", doc.Filename)
	require.Len(t, doc.Sections, 1)
	assert.True(t, strings.HasPrefix(doc.Sections[0].Title, "Academic Record"))
}
