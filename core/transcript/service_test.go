package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/testutil"
)

var errBoom = errors.New("boom")

type fakeSource struct {
	users       []lms.User
	groups      []lms.Group
	members     map[lms.ID][]lms.User
	enrollments map[lms.ID][]lms.Enrollment
	completions map[lms.ID][]lms.Completion
	failFor     map[lms.ID]bool
	failGroups  bool

	mu    sync.Mutex
	calls []string
}

var _ Source = (*fakeSource)(nil)

func (f *fakeSource) called(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeSource) ListUsersByEmail(_ context.Context, email string) ([]lms.User, error) {
	f.called("users?email=%s", email)
	var out []lms.User
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSource) ListGroups(context.Context) ([]lms.Group, error) {
	f.called("groups")
	if f.failGroups {
		return nil, errBoom
	}
	return f.groups, nil
}

func (f *fakeSource) ListGroupMembers(_ context.Context, groupID lms.ID) ([]lms.User, error) {
	f.called("groups/%s/users", groupID)
	return f.members[groupID], nil
}

func (f *fakeSource) ListEnrollments(_ context.Context, userID lms.ID) ([]lms.Enrollment, error) {
	f.called("users/%s/enrollments", userID)
	return f.enrollments[userID], nil
}

func (f *fakeSource) ListCompletions(_ context.Context, userID lms.ID) ([]lms.Completion, error) {
	f.called("users/%s/course_completions", userID)
	if f.failFor[userID] {
		return nil, errBoom
	}
	return f.completions[userID], nil
}

func (f *fakeSource) completionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasSuffix(c, "/course_completions") {
			n++
		}
	}
	return n
}

var loadedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(src Source, logger core.Logger) *Service {
	svc := NewService(src, logger, DefaultMaxMembers)
	svc.now = func() time.Time { return loadedAt }
	return svc
}

func groupFixture(n int) *fakeSource {
	src := &fakeSource{
		groups: []lms.Group{
			{ID: "7", Name: "Marketing"},
			{ID: "8", Name: "Sales Team EMEA"},
			{ID: "9", Name: "Sales Team US"},
		},
		members:     map[lms.ID][]lms.User{},
		completions: map[lms.ID][]lms.Completion{},
		failFor:     map[lms.ID]bool{},
	}
	for i := 1; i <= n; i++ {
		id := lms.ID(fmt.Sprint(i))
		src.members["8"] = append(src.members["8"], lms.User{
			ID: id, Name: fmt.Sprintf("Member %d", i), Email: fmt.Sprintf("m%d@acme.io", i),
		})
		src.completions[id] = []lms.Completion{
			{CourseID: "100", CourseName: "Workflow Practitioner", CompletedAt: "2024-01-01"},
		}
	}
	return src
}

func TestService_UserTranscript(t *testing.T) {
	src := &fakeSource{
		users: []lms.User{{ID: "42", Name: "Ada", Email: "ada@acme.io"}},
		enrollments: map[lms.ID][]lms.Enrollment{
			"42": {
				{CourseID: "1", CourseName: "Promapp Fundamentals"},
				{CourseID: "2", CourseName: "Forms Practitioner"},
			},
		},
		completions: map[lms.ID][]lms.Completion{
			"42": {
				{CourseID: "2", CompletedAt: "2024-02-01", CertificateURL: "https://cert/2"},
				{CourseID: "3", CourseName: "Expert Exam", CompletedAt: "2024-03-01"},
			},
		},
	}
	svc := newTestService(src, testutil.NewLogger())

	got, err := svc.UserTranscript(context.Background(), "  ada@acme.io ")
	require.NoError(t, err)

	want := []CourseRecord{
		{CourseID: "1", CourseName: "Promapp Fundamentals", Status: StatusEnrolled},
		{
			CourseID: "2", CourseName: "Forms Practitioner", Status: StatusCompleted,
			CompletedAt: strPtr("2024-02-01"), CertificateURL: strPtr("https://cert/2"),
		},
		{CourseID: "3", CourseName: "Expert Exam", Status: StatusCompleted, CompletedAt: strPtr("2024-03-01")},
	}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, lms.ID("42"), got.User.ID)
	assert.Equal(t, Stats{Total: 3, Completed: 2, Practitioner: 1, Expert: 1}, got.Stats)
	assert.Len(t, got.Categories.Get(CertificationPrograms), 1)
	assert.Equal(t, loadedAt, got.LoadedAt)
	assert.Contains(t, src.calls, "users?email=ada@acme.io")
}

func TestService_UserTranscript_idempotent(t *testing.T) {
	src := &fakeSource{
		users:       []lms.User{{ID: "1", Email: "a@b.c"}},
		enrollments: map[lms.ID][]lms.Enrollment{"1": {{CourseID: "1", CourseName: "A"}}},
		completions: map[lms.ID][]lms.Completion{"1": {{CourseID: "2", CourseName: "B"}}},
	}
	svc := newTestService(src, testutil.NewLogger())

	first, err := svc.UserTranscript(context.Background(), "a@b.c")
	require.NoError(t, err)
	second, err := svc.UserTranscript(context.Background(), "a@b.c")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second load differs (-first +second):\n%s", diff)
	}
}

func TestService_UserTranscript_notFound(t *testing.T) {
	svc := newTestService(&fakeSource{}, testutil.NewLogger())

	_, err := svc.UserTranscript(context.Background(), "nobody@acme.io")

	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, `User with email "nobody@acme.io" not found`, err.Error())
}

func TestService_GroupTranscript(t *testing.T) {
	src := groupFixture(3)
	src.completions["2"] = append(src.completions["2"], lms.Completion{
		CourseID: "200", CourseName: "Forms Expert", Status: "In Progress",
	})
	logger := testutil.NewLogger()
	svc := newTestService(src, logger)

	got, err := svc.GroupTranscript(context.Background(), "sales")
	require.NoError(t, err)

	assert.Equal(t, lms.ID("8"), got.Group.ID, "first match in upstream order")
	assert.Len(t, got.Members, 3)
	assert.Empty(t, got.Failures)
	require.Len(t, got.Records, 4)
	assert.Equal(t, "Member 1", got.Records[0].UserName)
	assert.Equal(t, "m1@acme.io", got.Records[0].UserEmail)
	assert.Equal(t, StatusCompleted, got.Records[0].Status)
	assert.Equal(t, "In Progress", got.Records[2].Status)
	assert.Equal(t, Stats{Total: 4, Completed: 3, Practitioner: 3, Expert: 1, Members: 3}, got.Stats)
	assert.Empty(t, logger.Entries("warn"))
}

func TestService_GroupTranscript_memberCap(t *testing.T) {
	src := groupFixture(15)
	svc := newTestService(src, testutil.NewLogger())

	got, err := svc.GroupTranscript(context.Background(), "EMEA")
	require.NoError(t, err)

	assert.Len(t, got.Members, DefaultMaxMembers)
	assert.Equal(t, DefaultMaxMembers, src.completionCalls())
	assert.Equal(t, DefaultMaxMembers, got.Stats.Members)
	assert.Equal(t, "Member 10", got.Members[9].Name)
}

func TestService_GroupTranscript_partialFailure(t *testing.T) {
	src := groupFixture(10)
	src.failFor["3"] = true
	logger := testutil.NewLogger()
	svc := newTestService(src, logger)

	got, err := svc.GroupTranscript(context.Background(), "sales")
	require.NoError(t, err)

	assert.Len(t, got.Records, 9)
	for _, rec := range got.Records {
		assert.NotEqual(t, "m3@acme.io", rec.UserEmail)
	}
	require.Len(t, got.Failures, 1)
	assert.Equal(t, lms.ID("3"), got.Failures[0].Member.ID)
	assert.Equal(t, "boom", got.Failures[0].Error)

	warnings := logger.Entries("warn")
	require.Len(t, warnings, 1)
	assert.Equal(t, "Could not fetch completions for user 3", warnings[0].Msg)
}

func TestService_GroupTranscript_capWithFailure(t *testing.T) {
	src := groupFixture(15)
	src.failFor["3"] = true
	logger := testutil.NewLogger()
	svc := newTestService(src, logger)

	got, err := svc.GroupTranscript(context.Background(), "EMEA")
	require.NoError(t, err)

	assert.Equal(t, 10, src.completionCalls())
	assert.Len(t, got.Members, 10)
	assert.Len(t, got.Records, 9)
	assert.Equal(t, 9, got.Stats.Members)

	emails := make(map[string]bool)
	for _, rec := range got.Records {
		emails[rec.UserEmail] = true
	}
	assert.False(t, emails["m3@acme.io"])
	assert.False(t, emails["m11@acme.io"], "members past the cap are not fetched")
	assert.True(t, emails["m10@acme.io"])

	require.Len(t, got.Failures, 1)
	assert.Equal(t, lms.ID("3"), got.Failures[0].Member.ID)
	assert.Len(t, logger.Entries("warn"), 1)
}

func TestService_GroupTranscript_notFound(t *testing.T) {
	svc := newTestService(groupFixture(1), testutil.NewLogger())

	_, err := svc.GroupTranscript(context.Background(), "finance")

	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, `Group containing "finance" not found`, err.Error())
}

func TestService_GroupTranscript_groupsFailure(t *testing.T) {
	src := groupFixture(1)
	src.failGroups = true
	svc := newTestService(src, testutil.NewLogger())

	_, err := svc.GroupTranscript(context.Background(), "sales")

	require.Error(t, err)
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.False(t, core.IsNotFound(err))
}

func TestService_GroupTranscript_cancelled(t *testing.T) {
	svc := newTestService(groupFixture(5), testutil.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GroupTranscript(ctx, "sales")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
