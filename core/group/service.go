package group

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/lms"
)

type (
	Source interface {
		ListGroups(ctx context.Context) ([]lms.Group, error)
		GetGroup(ctx context.Context, id lms.ID) (lms.Group, error)
		ListGroupMembers(ctx context.Context, groupID lms.ID) ([]lms.User, error)
	}

	Service struct {
		src Source
	}
)

func NewService(src Source) *Service {
	return &Service{src: src}
}

func (svc *Service) List(ctx context.Context) ([]lms.Group, error) {
	groups, err := svc.src.ListGroups(ctx)
	return groups, errors.Wrap(err, "listing groups")
}

// Details fetches a single group. An upstream 404 is reported as a *core.NotFoundError.
func (svc *Service) Details(ctx context.Context, id lms.ID) (lms.Group, error) {
	g, err := svc.src.GetGroup(ctx, id)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return lms.Group{}, core.NewNotFoundError("group id", id.String())
		}
		return lms.Group{}, errors.Wrapf(err, "fetching group %s", id)
	}
	return g, nil
}

func (svc *Service) Members(ctx context.Context, id lms.ID) ([]lms.User, error) {
	members, err := svc.src.ListGroupMembers(ctx, id)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, core.NewNotFoundError("group id", id.String())
		}
		return nil, errors.Wrapf(err, "fetching members of group %s", id)
	}
	return members, nil
}

func isStatus(err error, status int) bool {
	var httpErr *core.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
