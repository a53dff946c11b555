package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gamma-omg/rag-context/docstore"
	"github.com/gamma-omg/rag-context/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*ragServer, *knowledge.Engine) {
	e := knowledge.New(knowledge.WithLogger(discardLogger()))
	require.NoError(t, e.IndexDocument("d1", "Go is great for concurrency"))
	require.NoError(t, e.IndexDocument("d2", "Rust is great for safety"))

	return &ragServer{log: discardLogger(), engine: e, topK: knowledge.DefaultTopK}, e
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	txt, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return txt.Text
}

func Test_handleQueryContext(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleQueryContext(context.Background(), callRequest("query_context", map[string]any{
		"question": "concurrency",
		"top_k":    float64(1),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Go is great for concurrency", resultText(t, res))
}

func Test_handleQueryContext_MissingQuestion(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleQueryContext(context.Background(), callRequest("query_context", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func Test_handleSearch(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleSearch(context.Background(), callRequest("search", map[string]any{
		"question": "great safety",
	}))
	require.NoError(t, err)

	lines := splitLines(resultText(t, res))
	require.Len(t, lines, 2)

	var first struct {
		Score int    `json:"score"`
		DocID string `json:"doc_id"`
		Text  string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "d2", first.DocID)
	assert.Equal(t, 2, first.Score)
	assert.Equal(t, "Rust is great for safety", first.Text)
}

func Test_handleIndexDocument(t *testing.T) {
	s, e := newTestServer(t)

	res, err := s.handleIndexDocument(context.Background(), callRequest("index_document", map[string]any{
		"doc_id":  "d3",
		"content": "Zig is small",
	}))
	require.NoError(t, err)
	assert.Equal(t, "indexed d3", resultText(t, res))

	content, ok := e.Document("d3")
	require.True(t, ok)
	assert.Equal(t, "Zig is small", content)

	res, err = s.handleIndexDocument(context.Background(), callRequest("index_document", map[string]any{
		"doc_id":  "d4",
		"content": "   ",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func Test_handleIndexResumeAudit(t *testing.T) {
	s, e := newTestServer(t)

	res, err := s.handleIndexResumeAudit(context.Background(), callRequest("index_resume_audit", map[string]any{
		"candidate_id": "c1",
		"audit":        `{"contact_details": {"name": "Ada"}, "resume_claims": {"skills_list": ["Go"]}}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, "indexed resume_c1", resultText(t, res))

	_, ok := e.Document("resume_c1")
	assert.True(t, ok)

	res, err = s.handleIndexResumeAudit(context.Background(), callRequest("index_resume_audit", map[string]any{
		"audit": "{broken",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func Test_handleIndexScenario(t *testing.T) {
	s, e := newTestServer(t)

	res, err := s.handleIndexScenario(context.Background(), callRequest("index_scenario", map[string]any{
		"scenario": `{"id": "s1", "title": "Cache stampede"}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, "indexed scenario_s1", resultText(t, res))

	_, ok := e.Document("scenario_s1")
	assert.True(t, ok)

	res, err = s.handleIndexScenario(context.Background(), callRequest("index_scenario", map[string]any{
		"scenario": `{"id": 7, "title": "Numeric id", "difficulty": 3}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, "indexed scenario_7", resultText(t, res))

	res, err = s.handleIndexScenario(context.Background(), callRequest("index_scenario", map[string]any{
		"scenario": `["not", "an", "object"]`,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func Test_handleStats(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleStats(context.Background(), callRequest("get_stats", nil))
	require.NoError(t, err)

	var st docstore.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &st))
	assert.Equal(t, docstore.Stats{
		Initialized:       true,
		TotalDocuments:    2,
		TotalChunks:       2,
		DocumentIDs:       []string{"d1", "d2"},
		TotalCharsIndexed: 51,
	}, st)
}

func Test_NewRagServer(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NotNil(t, NewRagServer(s.engine, 3, discardLogger()))
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
