package transcript

import "github.com/alrightylabs/lutranscript/core"

type Category string

const (
	ProcessMapping         Category = "Process Mapping"
	WorkflowAndForms       Category = "Workflow and Forms"
	DocumentGeneration     Category = "Document Generation"
	AnalyticsAndReporting  Category = "Analytics and Reporting"
	PlatformAdministration Category = "Platform Administration"
	IntegrationAndAPI      Category = "Integration and API"
	AdvancedFeatures       Category = "Advanced Features"
	CertificationPrograms  Category = "Certification Programs"
	Other                  Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	ProcessMapping,
	WorkflowAndForms,
	DocumentGeneration,
	AnalyticsAndReporting,
	PlatformAdministration,
	IntegrationAndAPI,
	AdvancedFeatures,
	CertificationPrograms,
	Other,
}

type rule struct {
	category Category
	keywords []string
}

// rules are matched in order. Certification Programs is checked before Advanced Features,
// so "expert" always lands in Certification Programs.
var rules = []rule{
	{ProcessMapping, []string{"process", "mapping", "promapp"}},
	{WorkflowAndForms, []string{"workflow", "form", "nintex forms"}},
	{DocumentGeneration, []string{"document", "generation", "docgen"}},
	{AnalyticsAndReporting, []string{"analytics", "reporting", "dashboard"}},
	{PlatformAdministration, []string{"admin", "configuration", "setup"}},
	{IntegrationAndAPI, []string{"integration", "api", "connector"}},
	{CertificationPrograms, []string{"certification", "practitioner", "expert"}},
	{AdvancedFeatures, []string{"advanced", "expert"}},
}

// Categorize assigns a course name to the first category whose keywords it contains (case-insensitive).
func Categorize(courseName string) Category {
	if courseName == "" {
		return Other
	}
	for _, r := range rules {
		if core.ContainsAnyFold(courseName, r.keywords...) {
			return r.category
		}
	}
	return Other
}

type CourseType string

const (
	TypeCertification CourseType = "Certification"
	TypeCourse        CourseType = "Course"
)

var certificationKeywords = []string{"certification", "practitioner", "expert"}

func CourseTypeOf(courseName string) CourseType {
	if core.ContainsAnyFold(courseName, certificationKeywords...) {
		return TypeCertification
	}
	return TypeCourse
}

type CategoryGroup struct {
	Category Category       `json:"category"`
	Courses  []CourseRecord `json:"courses"`
}

// Categorized holds one group per category, in display order.
type Categorized []CategoryGroup

// GroupByCategory partitions records by Categorize(CourseName). Every category is present, even when empty.
func GroupByCategory(records []CourseRecord) Categorized {
	idx := make(map[Category]int, len(Categories))
	groups := make(Categorized, len(Categories))
	for i, cat := range Categories {
		idx[cat] = i
		groups[i] = CategoryGroup{Category: cat, Courses: []CourseRecord{}}
	}
	for _, rec := range records {
		i := idx[Categorize(rec.CourseName)]
		groups[i].Courses = append(groups[i].Courses, rec)
	}
	return groups
}

// NonEmpty drops the categories without courses, for rendering.
func (c Categorized) NonEmpty() Categorized {
	out := make(Categorized, 0, len(c))
	for _, g := range c {
		if len(g.Courses) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func (c Categorized) Get(cat Category) []CourseRecord {
	for _, g := range c {
		if g.Category == cat {
			return g.Courses
		}
	}
	return nil
}

// Section is a non-empty category ready for display.
type Section struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Rows     []Row    `json:"rows"`
}

// Sections renders the non-empty categories, in display order.
func (c Categorized) Sections(withUser bool) []Section {
	groups := c.NonEmpty()
	out := make([]Section, 0, len(groups))
	for _, g := range groups {
		rows := make([]Row, 0, len(g.Courses))
		for _, rec := range g.Courses {
			rows = append(rows, rec.Row(withUser))
		}
		out = append(out, Section{Category: g.Category, Count: len(rows), Rows: rows})
	}
	return out
}
