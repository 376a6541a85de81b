package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memSource serves LearnUpon data from memory. When block is set, ListGroups waits for it to be
// closed after signalling started.
type memSource struct {
	name        string
	groups      []lms.Group
	users       []lms.User
	members     map[lms.ID][]lms.User
	enrollments map[lms.ID][]lms.Enrollment
	completions map[lms.ID][]lms.Completion
	err         error

	started chan struct{}
	block   chan struct{}
}

func (s *memSource) ListUsersByEmail(_ context.Context, email string) ([]lms.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []lms.User
	for _, u := range s.users {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memSource) ListGroups(ctx context.Context) ([]lms.Group, error) {
	if s.block != nil {
		close(s.started)
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.groups, s.err
}

func (s *memSource) GetGroup(_ context.Context, id lms.ID) (lms.Group, error) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return lms.Group{}, &core.HTTPError{StatusCode: http.StatusNotFound}
}

func (s *memSource) ListGroupMembers(_ context.Context, id lms.ID) ([]lms.User, error) {
	return s.members[id], s.err
}

func (s *memSource) ListEnrollments(_ context.Context, id lms.ID) ([]lms.Enrollment, error) {
	return s.enrollments[id], s.err
}

func (s *memSource) ListCompletions(_ context.Context, id lms.ID) ([]lms.Completion, error) {
	return s.completions[id], s.err
}

func newSource() *memSource {
	src := &memSource{
		name:  "default",
		users: []lms.User{{ID: "42", Name: "Ada", Email: "ada@acme.io"}},
		members: map[lms.ID][]lms.User{
			"1": {{ID: "42", Name: "Ada", Email: "ada@acme.io"}},
		},
		enrollments: map[lms.ID][]lms.Enrollment{
			"42": {{CourseID: "1", CourseName: "Workflow Practitioner"}},
		},
		completions: map[lms.ID][]lms.Completion{
			"42": {{CourseID: "1", CompletedAt: "2024-01-01"}},
		},
	}
	for i := 1; i <= 25; i++ {
		src.groups = append(src.groups, lms.Group{ID: lms.ID(fmt.Sprint(i)), Name: fmt.Sprintf("Group %02d", i), MemberCount: 1})
	}
	src.groups[4].Name = "Sales EMEA"
	src.groups[14].Description = "inside sales"
	return src
}

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func newDashboard(src Source, logger core.Logger) *Dashboard {
	return New(Options{
		Settings:  Settings{Mode: core.ModeDirect},
		NewSource: func(Settings) Source { return src },
		PageSize:  10,
		Logger:    logger,
		Validate:  newValidator(),
	})
}

func TestDashboard_groups(t *testing.T) {
	d := newDashboard(newSource(), testutil.NewLogger())

	before := d.Groups("", 2)
	assert.False(t, before.Loaded)
	assert.Empty(t, before.Groups)

	page, err := d.LoadGroups(context.Background())
	require.NoError(t, err)
	assert.True(t, page.Loaded)
	assert.Len(t, page.Groups, 10)
	assert.Equal(t, "Page 1 of 3 (1-10 of 25)", page.Info.String())
	assert.Equal(t, 25, page.Stats.Total)
	assert.Equal(t, 25, page.Stats.TotalMembers)

	page = d.Groups("", 3)
	require.Len(t, page.Groups, 5)
	assert.Equal(t, lms.ID("21"), page.Groups[0].ID)

	// a new search term without a page goes back to page 1
	page = d.Groups("sales", 0)
	assert.Equal(t, 1, page.Info.Page)
	require.Len(t, page.Groups, 2)
	assert.Equal(t, []lms.ID{"5", "15"}, []lms.ID{page.Groups[0].ID, page.Groups[1].ID})
	assert.Equal(t, 25, page.Stats.Total, "stats cover every loaded group")

	// same term, page out of range
	page = d.Groups("sales", 2)
	assert.Empty(t, page.Groups)
	assert.Equal(t, 2, page.Info.Page)

	// page 0 keeps the current page
	page = d.Groups("sales", 0)
	assert.Equal(t, 2, page.Info.Page)

	page, err = d.LoadGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", page.Search)
	assert.Equal(t, 1, page.Info.Page)
}

func TestDashboard_groupsSearchWithPage(t *testing.T) {
	d := newDashboard(newSource(), testutil.NewLogger())
	_, err := d.LoadGroups(context.Background())
	require.NoError(t, err)

	// "group" matches the 24 groups not renamed
	page := d.Groups("group", 2)
	assert.Equal(t, "group", page.Search)
	assert.Equal(t, 2, page.Info.Page)
	require.Len(t, page.Groups, 10)
	assert.Equal(t, "Group 12", page.Groups[0].Name)

	page = d.Groups("sales", 2)
	assert.Equal(t, 2, page.Info.Page)
	assert.Empty(t, page.Groups)
}

func TestDashboard_groupLookups(t *testing.T) {
	d := newDashboard(newSource(), testutil.NewLogger())
	ctx := context.Background()

	g, err := d.GroupDetails(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Sales EMEA", g.Name)

	_, err = d.GroupDetails(ctx, "99")
	assert.True(t, core.IsNotFound(err))

	members, err := d.GroupMembers(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestDashboard_busy(t *testing.T) {
	src := newSource()
	src.started = make(chan struct{})
	src.block = make(chan struct{})
	d := newDashboard(src, testutil.NewLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := d.LoadGroups(ctx)
		assert.NoError(t, err)
	}()
	<-src.started
	assert.True(t, d.Busy())

	_, err := d.LoadUserTranscript(ctx, "ada@acme.io")
	assert.Equal(t, core.ErrBusy, err)
	_, err = d.LoadGroupTranscript(ctx, "group")
	assert.Equal(t, core.ErrBusy, err)
	_, err = d.Refresh(ctx)
	assert.Equal(t, core.ErrBusy, err)
	_, err = d.LoadGroups(ctx)
	assert.Equal(t, core.ErrBusy, err)

	// reading loaded data never waits for a load
	assert.False(t, d.Groups("", 1).Loaded)

	close(src.block)
	wg.Wait()
	assert.False(t, d.Busy())

	_, err = d.LoadUserTranscript(ctx, "ada@acme.io")
	assert.NoError(t, err)
}

func TestDashboard_userTranscript(t *testing.T) {
	src := newSource()
	logger := testutil.NewLogger()
	d := newDashboard(src, logger)
	ctx := context.Background()

	_, err := d.LoadUserTranscript(ctx, "   ")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "email", vErr.Fields[0].Field)
	assert.Nil(t, d.UserTranscript())

	ut, err := d.LoadUserTranscript(ctx, "ada@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 1, ut.Stats.Completed)
	assert.Equal(t, 1, ut.Stats.Practitioner)
	require.NotNil(t, d.UserTranscript())

	// a failed load keeps the previous transcript
	_, err = d.LoadUserTranscript(ctx, "nobody@acme.io")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, "ada@acme.io", d.UserTranscript().User.Email)
	assert.False(t, d.Busy())
	assert.Len(t, logger.Entries("warn"), 1)
}

func TestDashboard_groupTranscript(t *testing.T) {
	d := newDashboard(newSource(), testutil.NewLogger())
	ctx := context.Background()

	_, err := d.LoadGroupTranscript(ctx, "")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "name", vErr.Fields[0].Field)

	gt, err := d.LoadGroupTranscript(ctx, "group 01")
	require.NoError(t, err)
	assert.Equal(t, lms.ID("1"), gt.Group.ID)
	require.Len(t, gt.Records, 1)
	assert.Equal(t, "Ada", gt.Records[0].UserName)
	assert.Equal(t, gt.Group.ID, d.GroupTranscript().Group.ID)
}

func TestDashboard_refresh(t *testing.T) {
	src := newSource()
	logger := testutil.NewLogger()
	d := newDashboard(src, logger)
	ctx := context.Background()

	out, err := d.Refresh(ctx)
	require.NoError(t, err)
	assert.Nil(t, out.User)
	assert.Nil(t, out.Group)

	_, err = d.LoadUserTranscript(ctx, "ada@acme.io")
	require.NoError(t, err)
	src.completions["42"] = append(src.completions["42"], lms.Completion{CourseID: "2", CourseName: "Expert Exam"})

	out, err = d.Refresh(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.User)
	assert.Nil(t, out.Group)
	assert.Equal(t, 1, out.User.Stats.Expert)

	_, err = d.LoadGroupTranscript(ctx, "group 01")
	require.NoError(t, err)
	src.err = errors.New("upstream down")

	out, err = d.Refresh(ctx)
	require.Error(t, err)
	assert.Nil(t, out.User)
	assert.Nil(t, out.Group)
	assert.NotNil(t, d.UserTranscript(), "failed refresh keeps loaded data")
	assert.NotNil(t, d.GroupTranscript(), "failed refresh keeps loaded data")
	assert.Len(t, logger.Entries("error"), 2)
}

func TestDashboard_settings(t *testing.T) {
	sources := map[string]*memSource{
		core.ModeDirect: newSource(),
		core.ModeProxy:  {name: "proxy", groups: []lms.Group{{ID: "1", Name: "Proxied"}}},
	}
	var built []Settings
	d := New(Options{
		Settings: Settings{Mode: core.ModeDirect},
		NewSource: func(s Settings) Source {
			built = append(built, s)
			return sources[s.Mode]
		},
		Logger:   testutil.NewLogger(),
		Validate: newValidator(),
	})
	ctx := context.Background()

	tests := []struct {
		name      string
		settings  Settings
		wantField string
	}{
		{name: "unknown mode", settings: Settings{Mode: "carrier-pigeon"}, wantField: "mode"},
		{name: "missing mode", settings: Settings{}, wantField: "mode"},
		{name: "proxy without url", settings: Settings{Mode: core.ModeProxy, ProxyURL: "  "}, wantField: "proxy_url"},
		{name: "invalid url", settings: Settings{Mode: core.ModeProxy, ProxyURL: "not a url"}, wantField: "proxy_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.UpdateSettings(tt.settings)
			require.Error(t, err)
			var fields []string
			var vErrs validator.ValidationErrors
			var vErr *core.ValidationError
			switch {
			case errors.As(err, &vErrs):
				for _, fe := range vErrs {
					fields = append(fields, fe.Field())
				}
			case errors.As(err, &vErr):
				for _, fe := range vErr.Fields {
					fields = append(fields, fe.Field)
				}
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
	assert.Equal(t, Settings{Mode: core.ModeDirect}, d.Settings())
	assert.Len(t, built, 1)

	saved, err := d.UpdateSettings(Settings{Mode: core.ModeProxy, ProxyURL: " http://localhost:3000/api/learupon "})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/learupon", saved.ProxyURL)
	assert.Equal(t, saved, d.Settings())

	page, err := d.LoadGroups(ctx)
	require.NoError(t, err)
	require.Len(t, page.Groups, 1)
	assert.Equal(t, "Proxied", page.Groups[0].Name)

	// direct mode does not need a proxy URL
	_, err = d.UpdateSettings(Settings{Mode: core.ModeDirect})
	require.NoError(t, err)
	assert.Len(t, built, 3)
}
