// Package lms holds the LearnUpon records the dashboard consumes, as loosely as the upstream API types them.
package lms

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is an upstream identifier. LearnUpon sends numbers, but strings are tolerated.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	// only canonical integers go out as numbers: "007" or "+5" stay strings
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName is the name, else the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type Group struct {
	ID          ID     `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count"`
	Status      string `json:"status,omitempty"`
	Active      *bool  `json:"active,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// UnmarshalJSON accepts the three member count spellings seen upstream.
func (g *Group) UnmarshalJSON(data []byte) error {
	type alias Group
	var raw struct {
		alias
		MembersCount *int `json:"members_count"`
		UsersCount   *int `json:"users_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = Group(raw.alias)
	if g.MemberCount == 0 {
		switch {
		case raw.MembersCount != nil:
			g.MemberCount = *raw.MembersCount
		case raw.UsersCount != nil:
			g.MemberCount = *raw.UsersCount
		}
	}
	return nil
}

func (g Group) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return "Unnamed Group"
}

// IsActive is false only when the group is flagged inactive one way or the other.
func (g Group) IsActive() bool {
	return g.Status != "Inactive" && (g.Active == nil || *g.Active)
}

type Enrollment struct {
	ID         ID     `json:"id,omitempty"`
	CourseID   ID     `json:"course_id,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Course is the course identifier, falling back to the record id.
func (e Enrollment) Course() ID {
	if !e.CourseID.IsZero() {
		return e.CourseID
	}
	return e.ID
}

func (e Enrollment) Name() string {
	if e.CourseName != "" {
		return e.CourseName
	}
	return e.Title
}

type Completion struct {
	ID             ID     `json:"id,omitempty"`
	CourseID       ID     `json:"course_id,omitempty"`
	CourseName     string `json:"course_name,omitempty"`
	Title          string `json:"title,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
	CertificateURL string `json:"certificate_url,omitempty"`
	Status         string `json:"status,omitempty"`

	// set when aggregating a group transcript
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// Course is the course identifier, falling back to the record id.
func (c Completion) Course() ID {
	if !c.CourseID.IsZero() {
		return c.CourseID
	}
	return c.ID
}

func (c Completion) Name() string {
	if c.CourseName != "" {
		return c.CourseName
	}
	return c.Title
}
