package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
)

// normalizeName folds case, strips diacritics and collapses whitespace so
// "Société Générale" and "societe  generale" compare equal.
func normalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// UnknownCompanies lists the company names referenced by contacts, phones,
// research or emails that are not in the run's company list. Each name is
// reported once, in first-seen order. The result is advisory only.
func UnknownCompanies(result *model.PipelineResult) []string {
	if result == nil {
		return nil
	}

	known := make(map[string]struct{}, len(result.Companies))
	for _, c := range result.Companies {
		known[normalizeName(c.Name)] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]struct{})
	check := func(name string) {
		key := normalizeName(name)
		if key == "" {
			return
		}
		if _, ok := known[key]; ok {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		unknown = append(unknown, name)
	}

	for _, g := range result.Contacts {
		check(g.Name)
	}
	for _, g := range result.Phones {
		check(g.Name)
	}
	for _, g := range result.Research {
		check(g.Name)
	}
	for _, e := range result.Emails {
		check(e.Company)
	}
	return unknown
}
