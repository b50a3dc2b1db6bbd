// Package mcpserver exposes the user store as MCP tools, resources and prompts.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nadigross/userbase/internal/dto"
	"github.com/nadigross/userbase/internal/services"
	"github.com/nadigross/userbase/internal/validation"
)

const (
	AllUsersURI         = "users://all"
	userByEmailTemplate = "users://email/{+email}"
	userByEmailPrefix   = "users://email/"
)

// RegisterUserInput is the argument object of the register_user tool.
type RegisterUserInput struct {
	Username string `json:"username" jsonschema:"login name; rejected unless 3 to 50 characters"`
	Password string `json:"password" jsonschema:"password; rejected unless 6 to 72 characters"`
	Email    string `json:"email" jsonschema:"email address; must be valid and not yet registered"`
}

type Server struct {
	users *services.UserService
	log   *slog.Logger
}

// New builds an MCP server with every tool, resource and prompt registered.
func New(name, version string, users *services.UserService, log *slog.Logger) *mcp.Server {
	s := &Server{users: users, log: log}

	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{
		InitializedHandler: s.sessionStarted,
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "register_user",
		Description: "Register a new user and return the stored record. Applies the same rules as REST signup: " +
			"username 3 to 50 characters, password 6 to 72 characters, a valid unused email.",
	}, s.registerUser)

	srv.AddResource(&mcp.Resource{
		Name:        "all_users",
		URI:         AllUsersURI,
		Description: "Usernames of every registered user",
		MIMEType:    "text/plain",
	}, s.allUsers)

	srv.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "user_by_email",
		URITemplate: userByEmailTemplate,
		Description: "One user looked up by email",
		MIMEType:    "application/json",
	}, s.userByEmail)

	srv.AddPrompt(&mcp.Prompt{
		Name:        "happy_birthday",
		Description: "Birthday greeting",
		Arguments: []*mcp.PromptArgument{
			{Name: "name", Description: "who to greet", Required: true},
		},
	}, s.happyBirthday)

	return srv
}

func (s *Server) sessionStarted(_ context.Context, req *mcp.InitializedRequest) {
	s.log.Info("mcp session started", "session_id", req.Session.ID())
}

func (s *Server) registerUser(ctx context.Context, _ *mcp.CallToolRequest, in RegisterUserInput) (*mcp.CallToolResult, any, error) {
	user, err := s.users.Signup(ctx, &dto.SignupRequest{
		Email:    in.Email,
		Username: in.Username,
		Password: in.Password,
	})
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			return toolError(verrs.Error()), nil, nil
		case errors.Is(err, services.ErrEmailTaken):
			return toolError("email already registered"), nil, nil
		}
		s.log.Error("register_user failed", "error", err)
		return nil, nil, err
	}

	body, err := json.Marshal(dto.NewUserResponse(user))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func (s *Server) allUsers(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(names, ", "),
		}},
	}, nil
}

func (s *Server) userByEmail(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	email, err := emailFromURI(uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}

	body, err := json.Marshal(dto.NewUserResponse(user))
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}

func emailFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, userByEmailPrefix)
	if !ok || raw == "" {
		return "", fmt.Errorf("not a user email uri: %q", uri)
	}
	return url.PathUnescape(raw)
}

func (s *Server) happyBirthday(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := strings.TrimSpace(req.Params.Arguments["name"])
	if name == "" {
		return nil, errors.New("argument \"name\" is required")
	}

	return &mcp.GetPromptResult{
		Description: "Birthday greeting",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: "Happy birthday to " + name + "!"},
		}},
	}, nil
}
