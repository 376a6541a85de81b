// Package dashboard holds the state behind the transcript dashboard: the loaded groups and their
// search/page position, the last user and group transcripts, and the runtime settings.
// Loading actions are serialized: while one runs, the others fail with core.ErrBusy.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/group"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/core/transcript"
)

var (
	errEmailRequired     = errors.New("please enter an email address")
	errGroupNameRequired = errors.New("please enter a group name")
)

type (
	// Source is everything the dashboard reads from LearnUpon.
	Source interface {
		transcript.Source
		group.Source
	}

	// SourceFactory builds the Source matching settings. It is called again on every settings change.
	SourceFactory func(Settings) Source

	Options struct {
		Settings   Settings
		NewSource  SourceFactory
		PageSize   int
		MaxMembers int
		Logger     core.Logger
		Validate   *validator.Validate
	}

	// GroupPage is one page of the loaded groups, after filtering.
	GroupPage struct {
		Loaded bool           `json:"loaded"`
		Search string         `json:"search"`
		Groups []lms.Group    `json:"groups"`
		Info   group.PageInfo `json:"page_info"`
		Stats  group.Stats    `json:"stats"`
	}

	// Refreshed holds the transcripts reloaded by Refresh. Nil means not loaded.
	Refreshed struct {
		User  *transcript.UserTranscript  `json:"user,omitempty"`
		Group *transcript.GroupTranscript `json:"group,omitempty"`
	}

	Dashboard struct {
		logger     core.Logger
		validate   *validator.Validate
		newSource  SourceFactory
		pageSize   int
		maxMembers int

		busy atomic.Bool

		mu          sync.RWMutex
		settings    Settings
		transcripts *transcript.Service
		groupSvc    *group.Service
		groups      []lms.Group
		search      string
		page        int
		user        *transcript.UserTranscript
		userEmail   string
		grp         *transcript.GroupTranscript
		groupName   string
	}
)

func New(opts Options) *Dashboard {
	if opts.PageSize < 1 {
		opts.PageSize = group.DefaultPageSize
	}
	if opts.MaxMembers < 1 {
		opts.MaxMembers = transcript.DefaultMaxMembers
	}
	d := &Dashboard{
		logger:     opts.Logger,
		validate:   opts.Validate,
		newSource:  opts.NewSource,
		pageSize:   opts.PageSize,
		maxMembers: opts.MaxMembers,
		page:       1,
	}
	d.useSettings(opts.Settings)
	return d
}

// useSettings swaps the services for ones reading from the Source matching s. The caller holds mu
// (or owns d exclusively).
func (d *Dashboard) useSettings(s Settings) {
	src := d.newSource(s)
	d.settings = s
	d.transcripts = transcript.NewService(src, d.logger, d.maxMembers)
	d.groupSvc = group.NewService(src)
}

func (d *Dashboard) services() (*transcript.Service, *group.Service) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transcripts, d.groupSvc
}

func (d *Dashboard) acquire() error {
	if !d.busy.CompareAndSwap(false, true) {
		return core.ErrBusy
	}
	return nil
}

func (d *Dashboard) release() { d.busy.Store(false) }

// Busy reports whether a loading action is running.
func (d *Dashboard) Busy() bool { return d.busy.Load() }

func (d *Dashboard) logFailure(msg string, err error) {
	if core.IsNotFound(err) {
		d.logger.Warn(msg, err)
		return
	}
	d.logger.Error(msg, err)
}

// LoadGroups replaces the loaded groups with a fresh upstream list and goes back to the first
// unfiltered page.
func (d *Dashboard) LoadGroups(ctx context.Context) (GroupPage, error) {
	if err := d.acquire(); err != nil {
		return GroupPage{}, err
	}
	defer d.release()

	_, groupSvc := d.services()
	groups, err := groupSvc.List(ctx)
	if err != nil {
		d.logFailure("Error loading groups", err)
		return GroupPage{}, err
	}
	if groups == nil {
		groups = []lms.Group{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups = groups
	d.search = ""
	d.page = 1
	d.logger.Info(fmt.Sprintf("Loaded %d groups", len(groups)))
	return d.groupPage(), nil
}

// Groups moves to the given search term and page. page <= 0 keeps the current page, or starts
// over at page 1 when the search term changed.
func (d *Dashboard) Groups(search string, page int) GroupPage {
	d.mu.Lock()
	defer d.mu.Unlock()

	search = core.CleanString(search)
	if search != d.search {
		d.search = search
		d.page = 1
	}
	if page > 0 {
		d.page = page
	}
	return d.groupPage()
}

func (d *Dashboard) groupPage() GroupPage {
	filtered := group.Filter(d.groups, d.search)
	return GroupPage{
		Loaded: d.groups != nil,
		Search: d.search,
		Groups: group.Paginate(filtered, d.page, d.pageSize),
		Info:   group.NewPageInfo(len(filtered), d.page, d.pageSize),
		Stats:  group.StatsOf(d.groups),
	}
}

func (d *Dashboard) GroupDetails(ctx context.Context, id lms.ID) (lms.Group, error) {
	_, groupSvc := d.services()
	g, err := groupSvc.Details(ctx, id)
	if err != nil {
		d.logFailure(fmt.Sprintf("Error loading group %s", id), err)
	}
	return g, err
}

func (d *Dashboard) GroupMembers(ctx context.Context, id lms.ID) ([]lms.User, error) {
	_, groupSvc := d.services()
	members, err := groupSvc.Members(ctx, id)
	if err != nil {
		d.logFailure(fmt.Sprintf("Error loading members of group %s", id), err)
	}
	return members, err
}

// LoadUserTranscript loads the transcript of the user registered with email. On failure the
// previously loaded transcript is kept.
func (d *Dashboard) LoadUserTranscript(ctx context.Context, email string) (transcript.UserTranscript, error) {
	email = core.CleanString(email)
	if email == "" {
		return transcript.UserTranscript{}, core.NewValidationError(errEmailRequired,
			core.FieldError{Field: "email", Error: errEmailRequired.Error()})
	}
	if err := d.acquire(); err != nil {
		return transcript.UserTranscript{}, err
	}
	defer d.release()
	return d.loadUser(ctx, email)
}

func (d *Dashboard) loadUser(ctx context.Context, email string) (transcript.UserTranscript, error) {
	svc, _ := d.services()
	ut, err := svc.UserTranscript(ctx, email)
	if err != nil {
		d.logFailure(fmt.Sprintf("Error loading transcript of %s", email), err)
		return transcript.UserTranscript{}, err
	}

	d.mu.Lock()
	d.user = &ut
	d.userEmail = email
	d.mu.Unlock()
	return ut, nil
}

// LoadGroupTranscript loads the transcript of the first group whose name contains name. On failure
// the previously loaded transcript is kept.
func (d *Dashboard) LoadGroupTranscript(ctx context.Context, name string) (transcript.GroupTranscript, error) {
	name = core.CleanString(name)
	if name == "" {
		return transcript.GroupTranscript{}, core.NewValidationError(errGroupNameRequired,
			core.FieldError{Field: "name", Error: errGroupNameRequired.Error()})
	}
	if err := d.acquire(); err != nil {
		return transcript.GroupTranscript{}, err
	}
	defer d.release()
	return d.loadGroup(ctx, name)
}

func (d *Dashboard) loadGroup(ctx context.Context, name string) (transcript.GroupTranscript, error) {
	svc, _ := d.services()
	gt, err := svc.GroupTranscript(ctx, name)
	if err != nil {
		d.logFailure(fmt.Sprintf("Error loading transcript of group %q", name), err)
		return transcript.GroupTranscript{}, err
	}
	if n := len(gt.Failures); n > 0 {
		d.logger.Warn(fmt.Sprintf("Group %q loaded without %d member(s)", gt.Group.DisplayName(), n))
	}

	d.mu.Lock()
	d.grp = &gt
	d.groupName = name
	d.mu.Unlock()
	return gt, nil
}

// Refresh reloads the user transcript then the group transcript, whichever were loaded before.
// Both are attempted; the first error is returned.
func (d *Dashboard) Refresh(ctx context.Context) (Refreshed, error) {
	if err := d.acquire(); err != nil {
		return Refreshed{}, err
	}
	defer d.release()

	d.mu.RLock()
	email, name := d.userEmail, d.groupName
	d.mu.RUnlock()

	var (
		out      Refreshed
		firstErr error
	)
	if email != "" {
		ut, err := d.loadUser(ctx, email)
		if err != nil {
			firstErr = err
		} else {
			out.User = &ut
		}
	}
	if name != "" {
		gt, err := d.loadGroup(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			out.Group = &gt
		}
	}
	return out, firstErr
}

// UserTranscript returns the last loaded user transcript, nil when none.
func (d *Dashboard) UserTranscript() *transcript.UserTranscript {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.user
}

// GroupTranscript returns the last loaded group transcript, nil when none.
func (d *Dashboard) GroupTranscript() *transcript.GroupTranscript {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.grp
}
