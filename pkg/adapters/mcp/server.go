package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/adapters/file"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/registry"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FlowsURI is the resource listing registered flows.
const FlowsURI = "switchboard://flows"

// ValidateResponse reports the outcome of validating a draft flow.
type ValidateResponse struct {
	Valid     bool           `json:"valid" jsonschema_description:"True when the flow can be published"`
	Defects   []flow.Defect  `json:"defects,omitempty" jsonschema_description:"Structural problems blocking publication"`
	Warnings  []flow.Warning `json:"warnings,omitempty" jsonschema_description:"Soft findings that do not block publication"`
	Variables []string       `json:"variables,omitempty" jsonschema_description:"Template variables referenced by the flow"`
}

// PublishResponse identifies a published flow version.
type PublishResponse struct {
	ID      string `json:"id" jsonschema_description:"Flow id"`
	Version int    `json:"version" jsonschema_description:"Registered version"`
	Active  bool   `json:"active" jsonschema_description:"Whether the flow is now active"`
}

// FlowsResponse lists registered flows.
type FlowsResponse struct {
	Flows []registry.Summary `json:"flows"`
}

// MessageResponse carries the bot replies to one inbound event.
type MessageResponse struct {
	Messages []domain.OutboundMessage `json:"messages" jsonschema_description:"Bot replies in order"`
	Session  *domain.Session          `json:"session" jsonschema_description:"Session after the event"`
}

type definitionArgs struct {
	Definition string `json:"definition"`
	Activate   bool   `json:"activate,omitempty"`
}

type flowArgs struct {
	ID string `json:"id"`
}

type messageArgs struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type conversationArgs struct {
	ConversationID string `json:"conversation_id"`
}

// Server wraps a switchboard Engine and exposes it as an MCP Server.
type Server struct {
	engine    *switchboard.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *switchboard.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("switchboard-mcp", switchboard.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Validate a flow definition (YAML or JSON) without publishing it."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("Flow document in YAML or JSON")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("publish_flow",
		mcp.WithDescription("Validate and register a flow definition. Publishing an existing id creates a new version."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("Flow document in YAML or JSON")),
		mcp.WithBoolean("activate", mcp.Description("Make the flow the active one")),
		mcp.WithOutputSchema[PublishResponse](),
	), mcp.NewStructuredToolHandler(s.handlePublish))

	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List registered flows with their latest version and active flag."),
		mcp.WithOutputSchema[FlowsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListFlows))

	s.mcpServer.AddTool(mcp.NewTool("activate_flow",
		mcp.WithDescription("Make a registered flow the single active flow."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Flow id")),
		mcp.WithOutputSchema[FlowsResponse](),
	), mcp.NewStructuredToolHandler(s.handleActivate))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Deliver a user message to a conversation and return the bot replies."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[MessageResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Inspect the session of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("conversation_id", "")
		sess, err := s.engine.Session(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(sess)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args definitionArgs) (ValidateResponse, error) {
	def, err := file.Decode([]byte(args.Definition))
	if err != nil {
		return ValidateResponse{}, err
	}
	v, err := s.engine.Validate(def)
	if defects := flow.Defects(err); defects != nil {
		return ValidateResponse{Defects: defects}, nil
	}
	if err != nil {
		return ValidateResponse{}, err
	}
	return ValidateResponse{Valid: true, Warnings: v.Warnings(), Variables: v.Variables()}, nil
}

func (s *Server) handlePublish(ctx context.Context, request mcp.CallToolRequest, args definitionArgs) (PublishResponse, error) {
	def, err := file.Decode([]byte(args.Definition))
	if err != nil {
		return PublishResponse{}, err
	}
	id, version, err := s.engine.Publish(def)
	if err != nil {
		return PublishResponse{}, err
	}
	if args.Activate || def.Active {
		if err := s.engine.Activate(id); err != nil {
			return PublishResponse{}, err
		}
	}
	return PublishResponse{ID: id, Version: version, Active: s.engine.Registry().IsActive(id)}, nil
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest, args struct{}) (FlowsResponse, error) {
	return FlowsResponse{Flows: s.engine.Registry().List()}, nil
}

func (s *Server) handleActivate(ctx context.Context, request mcp.CallToolRequest, args flowArgs) (FlowsResponse, error) {
	if err := s.engine.Activate(args.ID); err != nil {
		return FlowsResponse{}, err
	}
	return FlowsResponse{Flows: s.engine.Registry().List()}, nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args messageArgs) (MessageResponse, error) {
	if args.ConversationID == "" {
		return MessageResponse{}, errors.New("conversation_id is required")
	}
	clean, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("MCP send_message: input rejected", "err", err, "size", len(args.Text))
		return MessageResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	msgs, sess, err := s.engine.Handle(ctx, domain.UserText(args.ConversationID, clean))
	if err != nil {
		return MessageResponse{}, err
	}
	if msgs == nil {
		msgs = []domain.OutboundMessage{}
	}
	return MessageResponse{Messages: msgs, Session: sess}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowsURI, "Registered Flows",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Registry().List())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
