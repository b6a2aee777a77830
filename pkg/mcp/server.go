package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/duallang/duallang/pkg/models"
	"github.com/duallang/duallang/pkg/tracker"
)

// Translator is the slice of a translation session the tools drive.
type Translator interface {
	Settings() models.Settings
	TranslateText(ctx context.Context, text string) (string, error)
	TranslateDocument(ctx context.Context, texts []string) ([]string, error)
	CacheStats() models.CacheStats
	TrackStatus() (models.TrackStatus, error)
	LookupFragment(fragment string) (string, bool)
}

// Server exposes translation tools over stdio using JSON-RPC 2.0.
type Server struct {
	translator Translator
	tracker    tracker.Tracker
	version    string
}

// New creates a Server. t may be nil when usage recording is off.
func New(tr Translator, t tracker.Tracker, version string) *Server {
	return &Server{translator: tr, tracker: t, version: version}
}

// Run reads one request per line from r and writes responses to w until r is
// exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, *resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "duallang", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidParams, Message: "invalid params"},
		}
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return s.reply(req, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}
	return s.reply(req, handler(ctx, s, params.Arguments))
}

func (s *Server) reply(req *Request, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[mcp] marshal error: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		log.Printf("[mcp] write error: %v", err)
	}
}
