package transcript

import "github.com/alrightylabs/lutranscript/core/lms"

// Reconcile merges a user's enrollments and completions into one record per course.
//
// Enrollment records come first, in enrollment order, marked Completed when a completion exists
// for the same course id (the last one wins on duplicates) and Enrolled otherwise. Completions of
// courses without an enrollment follow, in order of first appearance. The inputs are not modified.
func Reconcile(enrollments []lms.Enrollment, completions []lms.Completion) []CourseRecord {
	byCourse := make(map[lms.ID]lms.Completion, len(completions))
	for _, c := range completions {
		byCourse[c.Course()] = c
	}

	records := make([]CourseRecord, 0, len(enrollments)+len(completions))
	enrolled := make(map[lms.ID]bool, len(enrollments))
	for _, e := range enrollments {
		id := e.Course()
		enrolled[id] = true

		rec := CourseRecord{
			CourseID:   id,
			CourseName: e.Name(),
			Status:     StatusEnrolled,
		}
		if c, ok := byCourse[id]; ok {
			rec.Status = StatusCompleted
			rec.CompletedAt = optional(c.CompletedAt)
			rec.CertificateURL = optional(c.CertificateURL)
		}
		records = append(records, rec)
	}

	for _, c := range completions {
		id := c.Course()
		if enrolled[id] {
			continue
		}
		enrolled[id] = true // one record per course

		c = byCourse[id]
		records = append(records, CourseRecord{
			CourseID:       id,
			CourseName:     c.Name(),
			Status:         StatusCompleted,
			CompletedAt:    optional(c.CompletedAt),
			CertificateURL: optional(c.CertificateURL),
		})
	}
	return records
}
