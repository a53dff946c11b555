package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditJSON = `{
  "contact_details": {"name": "Ada Lovelace", "email": "ada@example.com"},
  "summary": {"trust_score": 87, "integrity_level": "HIGH"},
  "resume_claims": {
    "skills_list": ["Go", "Kubernetes", "PostgreSQL"],
    "projects_extracted_text": ["p1", "p2", "p3", "p4", "p5", "p6"]
  },
  "verification_breakdown": {
    "verified_skills": ["Go"],
    "unverified_skills": ["Kubernetes", "PostgreSQL"]
  },
  "github_deep_dive": {
    "total_public_repos": 12,
    "list_of_repos": ["r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10", "r11", "r12"],
    "top_languages_used": ["Go", "Python"]
  },
  "dynamic_market_intel": "Go backend roles are in high demand."
}`

func Test_ParseResumeAudit(t *testing.T) {
	audit, err := ParseResumeAudit([]byte(auditJSON))
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", audit.Name)
	assert.Equal(t, "87", audit.TrustScore)
	assert.Equal(t, "HIGH", audit.IntegrityLevel)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, audit.ClaimedSkills)
	assert.Equal(t, []string{"Go"}, audit.VerifiedSkills)
	assert.Equal(t, int64(12), audit.PublicRepos)
	assert.Len(t, audit.Repos, 12)
	assert.Len(t, audit.Projects, 6)
	assert.Equal(t, "Go backend roles are in high demand.", audit.MarketIntel)
}

func Test_ParseResumeAudit_Invalid(t *testing.T) {
	for _, raw := range []string{"", "{not json", `["array"]`, `"string"`} {
		_, err := ParseResumeAudit([]byte(raw))
		assert.ErrorIs(t, err, ErrParse, raw)
	}
}

func Test_ResumeAudit_Sections(t *testing.T) {
	audit, err := ParseResumeAudit([]byte(auditJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Candidate: Ada Lovelace. Trust Score: 87. Integrity: HIGH.",
		"Technical Skills: Go, Kubernetes, PostgreSQL. Verified by GitHub: Go. Unverified claims: Kubernetes, PostgreSQL.",
		"GitHub: 12 public repos. Top languages: Go, Python. Notable repos: r1, r2, r3, r4, r5, r6, r7, r8, r9, r10.",
		"Resume Projects: p1 | p2 | p3 | p4 | p5",
		"Market Intelligence: Go backend roles are in high demand.",
	}, audit.Sections())
}

func Test_ResumeAudit_SectionsOmitEmpty(t *testing.T) {
	audit := ResumeAudit{
		TrustScore:    "40",
		ClaimedSkills: []string{"Rust"},
	}

	assert.Equal(t, []string{
		"Candidate: Candidate. Trust Score: 40. Integrity: N/A.",
		"Technical Skills: Rust. Verified by GitHub: None. Unverified claims: None.",
	}, audit.Sections())

	assert.Empty(t, ResumeAudit{}.Sections())
}

func Test_IndexResumeAudit(t *testing.T) {
	e := newTestEngine()
	audit, err := ParseResumeAudit([]byte(auditJSON))
	require.NoError(t, err)

	require.NoError(t, e.IndexResumeAudit(audit, "c42"))

	content, ok := e.Document("resume_c42")
	require.True(t, ok)
	assert.Equal(t, strings.Join(audit.Sections(), "\n\n"), content)

	res, err := e.QueryContext("kubernetes", 1)
	require.NoError(t, err)
	assert.Equal(t, content, res)
}

func Test_IndexResumeAudit_Empty(t *testing.T) {
	e := newTestEngine()

	assert.ErrorIs(t, e.IndexResumeAudit(ResumeAudit{}, "c1"), ErrValidation)
	assert.Equal(t, 0, e.Stats().TotalDocuments)
}

func Test_IndexResumeAuditJSON(t *testing.T) {
	e := newTestEngine()

	require.NoError(t, e.IndexResumeAuditJSON([]byte(auditJSON), ""))
	_, ok := e.Document("resume_candidate")
	assert.True(t, ok)

	assert.ErrorIs(t, e.IndexResumeAuditJSON([]byte("{"), "c2"), ErrParse)
	assert.Equal(t, 1, e.Stats().TotalDocuments)
}
