package transcript

import (
	"time"

	"github.com/alrightylabs/lutranscript/core/lms"
)

// Record statuses set by reconciliation. Group transcripts may carry any upstream status.
const (
	StatusEnrolled  = "Enrolled"
	StatusCompleted = "Completed"
)

type (
	// CourseRecord is one course of a transcript: at most one per course id for a user pull.
	CourseRecord struct {
		CourseID       lms.ID  `json:"course_id"`
		CourseName     string  `json:"course_name"`
		Status         string  `json:"status"`
		CompletedAt    *string `json:"completed_at"`
		CertificateURL *string `json:"certificate_url"`

		// group transcripts only
		UserName  string `json:"user_name,omitempty"`
		UserEmail string `json:"user_email,omitempty"`
	}

	UserTranscript struct {
		User       lms.User       `json:"user"`
		Records    []CourseRecord `json:"records"`
		Categories Categorized    `json:"categories"`
		Stats      Stats          `json:"stats"`
		LoadedAt   time.Time      `json:"loaded_at"`
	}

	GroupTranscript struct {
		Group      lms.Group       `json:"group"`
		Members    []lms.User      `json:"members"` // the members whose completions were requested
		Failures   []MemberFailure `json:"failures"`
		Records    []CourseRecord  `json:"records"`
		Categories Categorized     `json:"categories"`
		Stats      Stats           `json:"stats"`
		LoadedAt   time.Time       `json:"loaded_at"`
	}

	// MemberFailure is a member whose completions could not be fetched; it does not fail the load.
	MemberFailure struct {
		Member lms.User `json:"member"`
		Error  string   `json:"error"`
	}
)

func (r CourseRecord) DisplayName() string {
	if r.CourseName == "" {
		return "Unknown Course"
	}
	return r.CourseName
}

func (r CourseRecord) DisplayUser() string {
	switch {
	case r.UserName != "":
		return r.UserName
	case r.UserEmail != "":
		return r.UserEmail
	}
	return "Unknown User"
}

func (r CourseRecord) DisplayStatus() string {
	if r.Status == "" {
		return "Unknown"
	}
	return r.Status
}

// Certificate is the certificate link, "Available" for completed courses without one, else "N/A".
func (r CourseRecord) Certificate() string {
	switch {
	case r.CertificateURL != nil && *r.CertificateURL != "":
		return *r.CertificateURL
	case r.Status == StatusCompleted:
		return "Available"
	}
	return "N/A"
}

// CompletionDate formats CompletedAt as a date, "N/A" when unknown. Unparseable timestamps are shown as is.
func (r CourseRecord) CompletionDate() string {
	if r.CompletedAt == nil || *r.CompletedAt == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *r.CompletedAt); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return *r.CompletedAt
}

func (r CourseRecord) Category() Category { return Categorize(r.CourseName) }

func (r CourseRecord) Type() CourseType { return CourseTypeOf(r.CourseName) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Row is a CourseRecord as shown to people, with every fallback applied.
type Row struct {
	CourseID       lms.ID     `json:"course_id"`
	Course         string     `json:"course"`
	Type           CourseType `json:"type"`
	Category       Category   `json:"category"`
	Status         string     `json:"status"`
	CompletionDate string     `json:"completion_date"`
	Certificate    string     `json:"certificate"`
	User           string     `json:"user,omitempty"`
	Email          string     `json:"email,omitempty"`
}

// Row renders r. withUser adds the member columns of group transcripts.
func (r CourseRecord) Row(withUser bool) Row {
	row := Row{
		CourseID:       r.CourseID,
		Course:         r.DisplayName(),
		Type:           r.Type(),
		Category:       r.Category(),
		Status:         r.DisplayStatus(),
		CompletionDate: r.CompletionDate(),
		Certificate:    r.Certificate(),
	}
	if withUser {
		row.User = r.DisplayUser()
		row.Email = r.UserEmail
	}
	return row
}
