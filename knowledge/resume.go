package knowledge

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	maxResumeRepos    = 10
	maxResumeProjects = 5
	defaultCandidate  = "candidate"
)

// ResumeAudit is the part of a resume verification report that is worth
// indexing.
type ResumeAudit struct {
	Name             string
	TrustScore       string
	IntegrityLevel   string
	ClaimedSkills    []string
	VerifiedSkills   []string
	UnverifiedSkills []string
	PublicRepos      int64
	Repos            []string
	Languages        []string
	Projects         []string
	MarketIntel      string
}

// ParseResumeAudit extracts a ResumeAudit from the JSON report produced by
// the resume validator. Missing fields are left empty; scalar fields accept
// numbers as well as strings.
func ParseResumeAudit(raw []byte) (ResumeAudit, error) {
	if !gjson.ValidBytes(raw) {
		return ResumeAudit{}, fmt.Errorf("%w: resume audit is not valid JSON", ErrParse)
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return ResumeAudit{}, fmt.Errorf("%w: resume audit must be a JSON object", ErrParse)
	}

	return ResumeAudit{
		Name:             doc.Get("contact_details.name").String(),
		TrustScore:       doc.Get("summary.trust_score").String(),
		IntegrityLevel:   doc.Get("summary.integrity_level").String(),
		ClaimedSkills:    strs(doc.Get("resume_claims.skills_list")),
		VerifiedSkills:   strs(doc.Get("verification_breakdown.verified_skills")),
		UnverifiedSkills: strs(doc.Get("verification_breakdown.unverified_skills")),
		PublicRepos:      doc.Get("github_deep_dive.total_public_repos").Int(),
		Repos:            strs(doc.Get("github_deep_dive.list_of_repos")),
		Languages:        strs(doc.Get("github_deep_dive.top_languages_used")),
		Projects:         strs(doc.Get("resume_claims.projects_extracted_text")),
		MarketIntel:      doc.Get("dynamic_market_intel").String(),
	}, nil
}

func strs(r gjson.Result) []string {
	var res []string
	for _, v := range r.Array() {
		if s := v.String(); s != "" {
			res = append(res, s)
		}
	}

	return res
}

// Sections renders the audit as one paragraph per category. Categories
// without data are left out.
func (a ResumeAudit) Sections() []string {
	var sections []string

	if a.Name != "" || a.TrustScore != "" || a.IntegrityLevel != "" {
		sections = append(sections, fmt.Sprintf(
			"Candidate: %s. Trust Score: %s. Integrity: %s.",
			or(a.Name, "Candidate"), or(a.TrustScore, "N/A"), or(a.IntegrityLevel, "N/A")))
	}

	if len(a.ClaimedSkills) > 0 {
		sections = append(sections, fmt.Sprintf(
			"Technical Skills: %s. Verified by GitHub: %s. Unverified claims: %s.",
			strings.Join(a.ClaimedSkills, ", "),
			or(strings.Join(a.VerifiedSkills, ", "), "None"),
			or(strings.Join(a.UnverifiedSkills, ", "), "None")))
	}

	if a.PublicRepos > 0 {
		sections = append(sections, fmt.Sprintf(
			"GitHub: %d public repos. Top languages: %s. Notable repos: %s.",
			a.PublicRepos,
			strings.Join(a.Languages, ", "),
			strings.Join(a.Repos[:min(len(a.Repos), maxResumeRepos)], ", ")))
	}

	if len(a.Projects) > 0 {
		sections = append(sections, "Resume Projects: "+
			strings.Join(a.Projects[:min(len(a.Projects), maxResumeProjects)], " | "))
	}

	if a.MarketIntel != "" {
		sections = append(sections, "Market Intelligence: "+a.MarketIntel)
	}

	return sections
}

func (a ResumeAudit) Text() string {
	return strings.Join(a.Sections(), "\n\n")
}

func ResumeDocID(candidateID string) string {
	return "resume_" + or(candidateID, defaultCandidate)
}

// IndexResumeAudit indexes the audit as a single document keyed
// resume_<candidateID>. An empty candidateID means "candidate".
func (e *Engine) IndexResumeAudit(audit ResumeAudit, candidateID string) error {
	return e.index(sourceResume, ResumeDocID(candidateID), audit.Text())
}

func (e *Engine) IndexResumeAuditJSON(raw []byte, candidateID string) error {
	audit, err := ParseResumeAudit(raw)
	if err != nil {
		e.metrics.rejected.WithLabelValues(sourceResume).Inc()
		e.log.Error("failed to parse resume audit", "candidate_id", candidateID, "error", err)
		return err
	}

	return e.IndexResumeAudit(audit, candidateID)
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
