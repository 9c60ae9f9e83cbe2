// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jonathan/interview-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSnapshot outputs the session status and ability estimate.
func (p *Printer) PrintSnapshot(s *types.SessionSnapshot) {
	if s == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session:   %s\n", s.SessionID)
	fmt.Fprintf(&sb, "Status:    %s\n", s.Status)
	if s.TerminationReason != "" {
		fmt.Fprintf(&sb, "Reason:    %s\n", s.TerminationReason)
	}
	fmt.Fprintf(&sb, "Theta:     %+.3f (SE %.3f)\n", s.Ability.Theta, s.Ability.StandardError)
	fmt.Fprintf(&sb, "Answered:  %d of max %d\n", s.Ability.QuestionsAnswered, s.Config.MaxQuestions)
	if s.CurrentQuestionID != nil {
		fmt.Fprintf(&sb, "Current:   %s\n", *s.CurrentQuestionID)
	}
	if s.Bias.Assessments > 0 {
		fmt.Fprintf(&sb, "Bias:      mean %.3f, max %.3f, %d interventions\n",
			s.Bias.MeanScore, s.Bias.MaxScore, s.Bias.Interventions)
	}

	p.printBox("SESSION", sb.String())
}

// PrintSelection outputs a selection decision with its closest competitors.
func (p *Printer) PrintSelection(o *types.SelectionOutcome) {
	if o == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question:  %s (%s)\n", o.QuestionID, o.Category)
	fmt.Fprintf(&sb, "P(correct) %.3f  info %.3f\n", o.PredictedProbabilityCorrect, o.ExpectedInformation)
	fmt.Fprintf(&sb, "Reason:    %s\n", o.SelectionReason)

	if len(o.CompetingCandidates) > 0 {
		sb.WriteString("\nRunners-up:\n")
		count := min(len(o.CompetingCandidates), maxItemsToShow)
		for _, c := range o.CompetingCandidates[:count] {
			fmt.Fprintf(&sb, "  • %s  info %.3f\n", c.QuestionID, c.ExpectedInformation)
		}
		if len(o.CompetingCandidates) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(o.CompetingCandidates)-maxItemsToShow)
		}
	}

	p.printBox("SELECTED QUESTION", sb.String())
}

// PrintBias outputs one bias assessment.
func (p *Printer) PrintBias(a *types.BiasAssessment) {
	if a == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question:  %s\n", a.QuestionID)
	fmt.Fprintf(&sb, "Score:     %.3f (deviation %+.3f)\n", a.OverallBiasScore, a.Deviation)
	fmt.Fprintf(&sb, "Urgency:   %s\n", a.InterventionUrgency)
	if a.InterventionRequired {
		sb.WriteString("⚠ Intervention required\n")
	}
	for _, category := range slices.Sorted(maps.Keys(a.PerCategoryScores)) {
		fmt.Fprintf(&sb, "  %-20s %.3f\n", category, a.PerCategoryScores[category])
	}
	for _, indicator := range a.Indicators {
		fmt.Fprintf(&sb, "  • %s\n", indicator)
	}

	p.printBox("BIAS ASSESSMENT", sb.String())
}

// PrintAudit outputs the audit trail one line per entry.
func (p *Printer) PrintAudit(entries []types.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%3d %-10s %s\n", e.Sequence, e.Kind, describe(e))
	}
	p.printBox(fmt.Sprintf("AUDIT TRAIL (%d entries)", len(entries)), sb.String())
}

func describe(e types.AuditEntry) string {
	switch {
	case e.Response != nil:
		return fmt.Sprintf("%s score %.2f", e.Response.QuestionID, e.Response.Score())
	case e.Selection != nil:
		return fmt.Sprintf("%s P=%.2f", e.Selection.QuestionID, e.Selection.PredictedProbabilityCorrect)
	case e.Bias != nil:
		return fmt.Sprintf("%s bias %.3f", e.Bias.QuestionID, e.Bias.OverallBiasScore)
	case e.Transition != nil:
		s := fmt.Sprintf("%s → %s", e.Transition.From, e.Transition.To)
		if e.Transition.Reason != "" {
			s += " (" + string(e.Transition.Reason) + ")"
		}
		return s
	default:
		return ""
	}
}
