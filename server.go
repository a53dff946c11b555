package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamma-omg/rag-context/docstore"
	"github.com/gamma-omg/rag-context/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextEngine interface {
	IndexDocument(id, content string) error
	IndexResumeAuditJSON(raw []byte, candidateID string) error
	IndexScenario(s knowledge.Scenario) error
	Query(question string, topK int) ([]knowledge.Match, error)
	QueryContext(question string, topK int) (string, error)
	Stats() docstore.Stats
}

type ragServer struct {
	log    *slog.Logger
	engine contextEngine
	topK   int
}

func NewRagServer(engine contextEngine, topK int, log *slog.Logger) *server.MCPServer {
	s := &ragServer{
		log:    log,
		engine: engine,
		topK:   topK,
	}

	srv := server.NewMCPServer("RAG context", "0.1.0", server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("query_context",
		mcp.WithDescription("Returns background text relevant to the question, ready to be added to a prompt"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Free-text question"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of documents to return"),
		),
	), s.handleQueryContext)

	srv.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Returns scored matching documents, one JSON object per line"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Free-text question"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of documents to return"),
		),
	), s.handleSearch)

	srv.AddTool(mcp.NewTool("index_document",
		mcp.WithDescription("Stores a text document, replacing any document with the same id"),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document text")),
	), s.handleIndexDocument)

	srv.AddTool(mcp.NewTool("index_resume_audit",
		mcp.WithDescription("Indexes a resume audit report as resume_<candidate_id>"),
		mcp.WithString("candidate_id", mcp.Description("Candidate id")),
		mcp.WithString("audit", mcp.Required(), mcp.Description("Resume audit report as JSON")),
	), s.handleIndexResumeAudit)

	srv.AddTool(mcp.NewTool("index_scenario",
		mcp.WithDescription("Indexes an interview scenario as scenario_<id>"),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario definition as JSON")),
	), s.handleIndexScenario)

	srv.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Returns corpus statistics"),
	), s.handleStats)

	return srv
}

// Retrieval never fails from the caller's point of view: internal errors
// are logged and answered with empty context.
func (s *ragServer) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.engine.QueryContext(q, request.GetInt("top_k", s.topK))
	if err != nil {
		s.log.Error("query_context failed", "error", err)
	}

	return mcp.NewToolResultText(res), nil
}

func (s *ragServer) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	matches, err := s.engine.Query(q, request.GetInt("top_k", s.topK))
	if err != nil {
		s.log.Error("search failed", "error", err)
	}

	var response strings.Builder
	for _, m := range matches {
		raw, err := json.Marshal(struct {
			Score int    `json:"score"`
			DocID string `json:"doc_id"`
			Text  string `json:"text"`
		}{
			Score: m.Score,
			DocID: m.DocID,
			Text:  m.Content,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fmt.Fprintf(&response, "%s\n", raw)
	}

	return mcp.NewToolResultText(response.String()), nil
}

func (s *ragServer) handleIndexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = s.engine.IndexDocument(id, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("indexed %s", id)), nil
}

func (s *ragServer) handleIndexResumeAudit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	audit, err := request.RequireString("audit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	candidate := request.GetString("candidate_id", "")
	err = s.engine.IndexResumeAuditJSON([]byte(audit), candidate)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("indexed %s", knowledge.ResumeDocID(candidate))), nil
}

func (s *ragServer) handleIndexScenario(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("scenario")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sc, err := knowledge.ParseScenario([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = s.engine.IndexScenario(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("indexed %s", knowledge.ScenarioDocID(sc.ID))), nil
}

func (s *ragServer) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(s.engine.Stats())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(raw)), nil
}
