// Package mcp exposes meal analysis and the meal log as MCP tools over a
// plain HTTP POST endpoint.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/middleware"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/media"
)

const (
	ToolAnalyzeMeal = "analyze_meal"
	ToolGetMeals    = "get_meals"
)

const maxBodyBytes = 16 << 20

// Runner runs one analyzer input.
type Runner interface {
	Run(ctx context.Context, in analyzer.Input) (*analysis.Result, error)
}

type AnalyzeMealParams struct {
	Kind        string `json:"kind" description:"text, image or audio"`
	Description string `json:"description,omitempty" description:"Meal description for kind text"`
	DataURL     string `json:"data_url,omitempty" description:"Base64 data URL of the photo or recording"`
	Note        string `json:"note,omitempty" description:"Optional note accompanying a photo"`
	Provider    string `json:"provider,omitempty" description:"Preferred provider name"`
}

type GetMealsParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of meals to return"`
}

type Handler struct {
	analyzers Runner
	meals     meallog.Store
}

func NewHandler(analyzers Runner, meals meallog.Store) *Handler {
	return &Handler{analyzers: analyzers, meals: meals}
}

// ServeHTTP decodes a tools/call request and routes it by tool name.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var result *protocol.CallToolResult
	var err error

	switch request.Name {
	case ToolAnalyzeMeal:
		result, err = h.analyzeMeal(r.Context(), userID, &request)
	case ToolGetMeals:
		result, err = h.getMeals(r.Context(), userID, &request)
	default:
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		code := string(apperrors.ErrorTypeInternal)
		if appErr, ok := apperrors.As(err); ok {
			status = appErr.StatusCode
			code = appErr.Code()
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": apperrors.Localize(err, r.Header.Get("Accept-Language")),
			"code":  code,
		})
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Failed to encode MCP response", "tool", request.Name, "error", err)
	}
}

// extractParams converts the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	raw, err := json.Marshal(req.Arguments)
	if err != nil {
		return apperrors.NewValidationError("invalid tool arguments", "INVALID_ARGUMENTS", "")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return apperrors.NewValidationError("invalid tool arguments", "INVALID_ARGUMENTS", "")
	}
	return nil
}

func (h *Handler) analyzeMeal(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AnalyzeMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	in, err := params.input()
	if err != nil {
		return nil, err
	}

	result, err := h.analyzers.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	entry := meallog.NewEntry(userID, in.Kind, in.Text, result)
	if err := h.meals.Append(ctx, entry); err != nil {
		slog.Error("Failed to append meal log entry", "tool", ToolAnalyzeMeal, "error", err)
		entry.ID = ""
	}

	return jsonResult(map[string]interface{}{
		"name":      result.Record.Name,
		"calories":  result.Record.Calories,
		"protein":   result.Record.Protein,
		"carbs":     result.Record.Carbs,
		"fat":       result.Record.Fat,
		"provider":  result.Provider,
		"fell_back": result.FellBack,
		"meal_id":   entry.ID,
	})
}

func (p AnalyzeMealParams) input() (analyzer.Input, error) {
	kind, err := analysis.ParseKind(p.Kind)
	if err != nil {
		return analyzer.Input{}, err
	}

	in := analyzer.Input{Kind: kind, Provider: p.Provider}
	switch kind {
	case analysis.KindText:
		in.Text = p.Description
		return in, nil
	case analysis.KindImage:
		in.Text = p.Note
	}

	mediaKind := media.KindImage
	if kind == analysis.KindAudio {
		mediaKind = media.KindAudio
	}
	in.Media, err = media.FromDataURL(mediaKind, p.DataURL)
	if err != nil {
		return analyzer.Input{}, err
	}
	return in, nil
}

func (h *Handler) getMeals(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	entries, err := h.meals.List(ctx, userID, meallog.ClampLimit(params.Limit))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list meals", "MEAL_LOG_UNAVAILABLE", err)
	}

	return jsonResult(map[string]interface{}{
		"meals": entries,
		"count": len(entries),
	})
}

func jsonResult(data interface{}) (*protocol.CallToolResult, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(raw),
			},
		},
	}, nil
}
