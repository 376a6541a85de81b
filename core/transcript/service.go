package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/lms"
)

// DefaultMaxMembers caps how many group members get their completions fetched.
const DefaultMaxMembers = 10

type (
	// Source is the subset of the LearnUpon API transcripts are built from.
	Source interface {
		ListUsersByEmail(ctx context.Context, email string) ([]lms.User, error)
		ListGroups(ctx context.Context) ([]lms.Group, error)
		ListGroupMembers(ctx context.Context, groupID lms.ID) ([]lms.User, error)
		ListEnrollments(ctx context.Context, userID lms.ID) ([]lms.Enrollment, error)
		ListCompletions(ctx context.Context, userID lms.ID) ([]lms.Completion, error)
	}

	Service struct {
		src        Source
		logger     core.Logger
		maxMembers int
		now        func() time.Time
	}
)

func NewService(src Source, logger core.Logger, maxMembers int) *Service {
	if maxMembers <= 0 {
		maxMembers = DefaultMaxMembers
	}
	return &Service{
		src:        src,
		logger:     logger,
		maxMembers: maxMembers,
		now:        time.Now,
	}
}

// FindUser returns the first user registered with email.
func (svc *Service) FindUser(ctx context.Context, email string) (lms.User, error) {
	email = core.CleanString(email)
	users, err := svc.src.ListUsersByEmail(ctx, email)
	if err != nil {
		return lms.User{}, errors.Wrap(err, "finding user by email")
	}
	if len(users) == 0 {
		return lms.User{}, core.NewNotFoundError("user", email)
	}
	return users[0], nil
}

// FindGroup returns the first group whose name contains name, ignoring case.
func (svc *Service) FindGroup(ctx context.Context, name string) (lms.Group, error) {
	name = core.CleanString(name)
	groups, err := svc.src.ListGroups(ctx)
	if err != nil {
		return lms.Group{}, errors.Wrap(err, "finding group by name")
	}
	for _, g := range groups {
		if g.Name != "" && core.ContainsFold(g.Name, name) {
			return g, nil
		}
	}
	return lms.Group{}, core.NewNotFoundError("group", name)
}

// UserTranscript reconciles the enrollments and completions of the user registered with email.
// Both collections are fetched concurrently; either failure fails the load.
func (svc *Service) UserTranscript(ctx context.Context, email string) (UserTranscript, error) {
	usr, err := svc.FindUser(ctx, email)
	if err != nil {
		return UserTranscript{}, err
	}

	var (
		enrollments []lms.Enrollment
		completions []lms.Completion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		enrollments, err = svc.src.ListEnrollments(gctx, usr.ID)
		return errors.Wrap(err, "fetching user enrollments")
	})
	g.Go(func() error {
		var err error
		completions, err = svc.src.ListCompletions(gctx, usr.ID)
		return errors.Wrap(err, "fetching user completions")
	})
	if err := g.Wait(); err != nil {
		return UserTranscript{}, err
	}

	records := Reconcile(enrollments, completions)
	return UserTranscript{
		User:       usr,
		Records:    records,
		Categories: GroupByCategory(records),
		Stats:      UserStats(records),
		LoadedAt:   svc.now(),
	}, nil
}

// GroupTranscript gathers the completions of the first members of the group matching name.
// Members are processed one after the other, in upstream order; a member whose completions cannot
// be fetched is logged and skipped.
func (svc *Service) GroupTranscript(ctx context.Context, name string) (GroupTranscript, error) {
	grp, err := svc.FindGroup(ctx, name)
	if err != nil {
		return GroupTranscript{}, err
	}

	members, err := svc.src.ListGroupMembers(ctx, grp.ID)
	if err != nil {
		return GroupTranscript{}, errors.Wrap(err, "fetching group members")
	}
	if len(members) > svc.maxMembers {
		members = members[:svc.maxMembers]
	}

	records := make([]CourseRecord, 0)
	failures := make([]MemberFailure, 0)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return GroupTranscript{}, errors.Wrap(err, "fetching group transcript")
		}

		completions, err := svc.src.ListCompletions(ctx, m.ID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("Could not fetch completions for user %s", m.ID), err, m)
			failures = append(failures, MemberFailure{Member: m, Error: err.Error()})
			continue
		}
		for _, c := range completions {
			records = append(records, memberRecord(m, c))
		}
	}

	return GroupTranscript{
		Group:      grp,
		Members:    members,
		Failures:   failures,
		Records:    records,
		Categories: GroupByCategory(records),
		Stats:      GroupStats(records),
		LoadedAt:   svc.now(),
	}, nil
}

func memberRecord(m lms.User, c lms.Completion) CourseRecord {
	status := c.Status
	if status == "" {
		status = StatusCompleted
	}
	return CourseRecord{
		CourseID:       c.Course(),
		CourseName:     c.Name(),
		Status:         status,
		CompletedAt:    optional(c.CompletedAt),
		CertificateURL: optional(c.CertificateURL),
		UserName:       m.DisplayName(),
		UserEmail:      m.Email,
	}
}
