package transcript

import (
	"time"

	"github.com/alrightylabs/lutranscript/core/lms"
)

type (
	// UserReport is a UserTranscript as displayed: stats and the non-empty categories.
	UserReport struct {
		User     lms.User  `json:"user"`
		Stats    Stats     `json:"stats"`
		Sections []Section `json:"categories"`
		LoadedAt time.Time `json:"loaded_at"`
	}

	GroupReport struct {
		Group    lms.Group       `json:"group"`
		Members  int             `json:"members_processed"`
		Failures []MemberFailure `json:"failures"`
		Stats    Stats           `json:"stats"`
		Sections []Section       `json:"categories"`
		LoadedAt time.Time       `json:"loaded_at"`
	}
)

func (ut UserTranscript) Report() *UserReport {
	return &UserReport{
		User:     ut.User,
		Stats:    ut.Stats,
		Sections: ut.Categories.Sections(false),
		LoadedAt: ut.LoadedAt,
	}
}

func (gt GroupTranscript) Report() *GroupReport {
	g := gt.Group
	g.Name = g.DisplayName()
	return &GroupReport{
		Group:    g,
		Members:  len(gt.Members),
		Failures: gt.Failures,
		Stats:    gt.Stats,
		Sections: gt.Categories.Sections(true),
		LoadedAt: gt.LoadedAt,
	}
}
