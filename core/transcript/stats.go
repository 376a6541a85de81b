package transcript

import "github.com/alrightylabs/lutranscript/core"

type Stats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Practitioner int `json:"practitioner"`
	Expert       int `json:"expert"`
	Members      int `json:"members,omitempty"`
}

// UserStats only counts completed practitioner/expert courses.
func UserStats(records []CourseRecord) Stats {
	st := Stats{Total: len(records)}
	for _, rec := range records {
		if rec.Status != StatusCompleted {
			continue
		}
		st.Completed++
		if core.ContainsFold(rec.CourseName, "practitioner") {
			st.Practitioner++
		}
		if core.ContainsFold(rec.CourseName, "expert") {
			st.Expert++
		}
	}
	return st
}

// GroupStats counts practitioner/expert courses whatever their status, unlike UserStats.
// Members is the number of distinct members with at least one record.
func GroupStats(records []CourseRecord) Stats {
	st := Stats{Total: len(records)}
	members := make(map[string]struct{})
	for _, rec := range records {
		if rec.Status == StatusCompleted {
			st.Completed++
		}
		if core.ContainsFold(rec.CourseName, "practitioner") {
			st.Practitioner++
		}
		if core.ContainsFold(rec.CourseName, "expert") {
			st.Expert++
		}
		members[rec.UserEmail+"|"+rec.UserName] = struct{}{}
	}
	st.Members = len(members)
	return st
}
