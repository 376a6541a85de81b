package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alrightylabs/lutranscript/core/dashboard"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/core/transcript"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return errors.Errorf("unknown output format %q: want table, json or yaml", format)
}

func (cli *commandLine) render(v interface{}) error {
	switch cli.output {
	case outputJSON:
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(cli.out, v)
	}

	switch v := v.(type) {
	case dashboard.GroupPage:
		writeGroupPage(cli.out, v)
	case lms.Group:
		writeGroup(cli.out, v)
	case []lms.User:
		writeUsers(cli.out, v)
	case *transcript.UserReport:
		writeUserReport(cli.out, v)
	case *transcript.GroupReport:
		writeGroupReport(cli.out, v)
	default:
		return errors.Errorf("no table layout for %T", v)
	}
	return nil
}

// writeYAML goes through JSON so the keys and their order match the API output.
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	var node yaml.Node
	if err = yaml.Unmarshal(data, &node); err != nil {
		return errors.Wrap(err, "yaml.Unmarshal")
	}
	plainStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(&node); err != nil {
		return errors.Wrap(err, "yaml.Encode")
	}
	return enc.Close()
}

// plainStyle drops the flow style JSON documents are decoded with.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func writeGroupPage(w io.Writer, p dashboard.GroupPage) {
	if p.Search != "" {
		fmt.Fprintf(w, "Search: %q\n", p.Search)
	}
	if len(p.Groups) == 0 {
		fmt.Fprintln(w, "No groups found.")
	} else {
		t := newTable("ID", "Name", "Members", "Status", "Description")
		for _, g := range p.Groups {
			t.Row(g.ID.String(), g.DisplayName(), fmt.Sprint(g.MemberCount), groupStatus(g), g.Description)
		}
		fmt.Fprintln(w, t.String())
	}
	fmt.Fprintln(w, p.Info.String())
	fmt.Fprintf(w, "Groups: %d, active: %d, members: %d\n", p.Stats.Total, p.Stats.Active, p.Stats.TotalMembers)
}

func groupStatus(g lms.Group) string {
	if g.IsActive() {
		return "Active"
	}
	return "Inactive"
}

func writeGroup(w io.Writer, g lms.Group) {
	fmt.Fprintln(w, titleStyle.Render(g.DisplayName()))
	fmt.Fprintf(w, "ID: %s\n", g.ID)
	fmt.Fprintf(w, "Members: %d\n", g.MemberCount)
	fmt.Fprintf(w, "Status: %s\n", groupStatus(g))
	if g.CreatedAt != "" {
		fmt.Fprintf(w, "Created: %s\n", g.CreatedAt)
	}
	if g.Description != "" {
		fmt.Fprintf(w, "\n%s\n", g.Description)
	}
}

func writeUsers(w io.Writer, users []lms.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No members found.")
		return
	}
	t := newTable("ID", "Name", "Email")
	for _, u := range users {
		t.Row(u.ID.String(), u.Name, u.Email)
	}
	fmt.Fprintln(w, t.String())
}

func writeUserReport(w io.Writer, r *transcript.UserReport) {
	fmt.Fprintln(w, titleStyle.Render(r.User.DisplayName()))
	fmt.Fprintf(w, "Courses: %d, completed: %d, practitioner: %d, expert: %d\n",
		r.Stats.Total, r.Stats.Completed, r.Stats.Practitioner, r.Stats.Expert)
	writeSections(w, r.Sections, false)
}

func writeGroupReport(w io.Writer, r *transcript.GroupReport) {
	fmt.Fprintln(w, titleStyle.Render(r.Group.Name))
	fmt.Fprintf(w, "Members processed: %d, completions: %d, practitioner: %d, expert: %d\n",
		r.Members, r.Stats.Total, r.Stats.Practitioner, r.Stats.Expert)
	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "Failed members:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Member.DisplayName(), f.Error)
		}
	}
	writeSections(w, r.Sections, true)
}

func writeSections(w io.Writer, sections []transcript.Section, withUser bool) {
	if len(sections) == 0 {
		fmt.Fprintln(w, "\nNo courses found.")
		return
	}
	headers := []string{"Course", "Type", "Status", "Completed", "Certificate"}
	if withUser {
		headers = append(headers, "User", "Email")
	}
	for _, s := range sections {
		fmt.Fprintf(w, "\n%s\n", titleStyle.Render(fmt.Sprintf("%s (%d)", s.Category, s.Count)))
		t := newTable(headers...)
		for _, r := range s.Rows {
			cells := []string{r.Course, string(r.Type), r.Status, r.CompletionDate, r.Certificate}
			if withUser {
				cells = append(cells, r.User, r.Email)
			}
			t.Row(cells...)
		}
		fmt.Fprintln(w, strings.TrimRight(t.String(), "\n"))
	}
}
