package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/middleware"
	"github.com/mealsnap/mealsnap/internal/sentry"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/media"
	"github.com/mealsnap/mealsnap/internal/services/provider"
	"github.com/mealsnap/mealsnap/internal/validation"
	"github.com/mealsnap/mealsnap/internal/worker"
)

const (
	maxJSONBytes      = 16 << 20
	maxMultipartBytes = 12 << 20
)

// Runner runs one analyzer input.
type Runner interface {
	Run(ctx context.Context, in analyzer.Input) (*analysis.Result, error)
}

// Providers is the registry surface the API needs.
type Providers interface {
	Describe() []provider.Descriptor
	DefaultName() string
	SetDefault(name string) error
	Health() map[string]bool
}

type Server struct {
	analyzers Runner
	providers Providers
	meals     meallog.Store
	jobs      jobs.Store
	queue     worker.Enqueuer
	timeout   time.Duration
}

// NewServer wires the handlers. jobStore and queue may be nil when no Redis
// is configured; the job endpoints then answer 503.
func NewServer(analyzers Runner, providers Providers, meals meallog.Store, jobStore jobs.Store, queue worker.Enqueuer, timeout time.Duration) *Server {
	if meals == nil {
		meals = meallog.NopStore{}
	}
	return &Server{
		analyzers: analyzers,
		providers: providers,
		meals:     meals,
		jobs:      jobStore,
		queue:     queue,
		timeout:   timeout,
	}
}

// AnalysisResponse is the body of a successful synchronous analysis.
type AnalysisResponse struct {
	Name     string   `json:"name"`
	Calories int      `json:"calories"`
	Protein  int      `json:"protein"`
	Carbs    int      `json:"carbs"`
	Fat      int      `json:"fat"`
	Provider string   `json:"provider"`
	FellBack bool     `json:"fell_back"`
	Attempts []string `json:"attempts,omitempty"`
	MealID   string   `json:"meal_id,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyzeRequest is the JSON body of the analyze endpoints. Description is
// used for text, Note for photos, DataURL for photos and recordings.
type AnalyzeRequest struct {
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	DataURL     string `json:"data_url,omitempty"`
	Note        string `json:"note,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

func (req AnalyzeRequest) payload(jobID, userID, language string) worker.AnalyzeMealPayload {
	text := req.Description
	if req.Kind == string(analysis.KindImage) {
		text = req.Note
	}
	return worker.AnalyzeMealPayload{
		JobID:    jobID,
		UserID:   userID,
		Kind:     req.Kind,
		Text:     text,
		DataURL:  req.DataURL,
		Provider: req.Provider,
		Language: language,
	}
}

func (s *Server) HandleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.analyze(w, r, analyzer.Input{Kind: analysis.KindText, Text: req.Description, Provider: req.Provider})
}

func (s *Server) HandleAnalyzePhoto(w http.ResponseWriter, r *http.Request) {
	in, err := s.mediaInput(w, r, analysis.KindImage, "image", validation.MaxImageBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.analyze(w, r, in)
}

func (s *Server) HandleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	in, err := s.mediaInput(w, r, analysis.KindAudio, "audio", validation.MaxAudioBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.analyze(w, r, in)
}

// mediaInput reads a photo or recording either from a multipart upload in
// field or from a JSON body carrying a data URL.
func (s *Server) mediaInput(w http.ResponseWriter, r *http.Request, kind analysis.Kind, field string, maxBytes int) (analyzer.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req AnalyzeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return analyzer.Input{}, err
		}
		req.Kind = string(kind)
		return req.payload("", "", "").Input()
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		return analyzer.Input{}, apperrors.NewValidationError("invalid multipart upload", "INVALID_UPLOAD", "Send the file as multipart/form-data.")
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return analyzer.Input{}, apperrors.NewValidationError("missing "+field+" file", "MEDIA_MISSING", "")
	}
	defer file.Close()

	mediaKind := media.KindImage
	if kind == analysis.KindAudio {
		mediaKind = media.KindAudio
	}
	encoded, err := media.Encode(mediaKind, file, int64(maxBytes))
	if err != nil {
		return analyzer.Input{}, err
	}

	in := analyzer.Input{Kind: kind, Media: encoded, Provider: r.FormValue("provider")}
	if kind == analysis.KindImage {
		in.Text = r.FormValue("note")
	}
	return in, nil
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, in analyzer.Input) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.writeError(w, r, errUnauthorized)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.analyzers.Run(ctx, in)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeAllProvidersFailed) {
			sentry.CaptureException(r.Context(), err, map[string]string{"kind": string(in.Kind)})
		}
		s.writeError(w, r, err)
		return
	}

	entry := meallog.NewEntry(userID, in.Kind, in.Text, result)
	if err := s.meals.Append(r.Context(), entry); err != nil {
		slog.Error("Failed to append meal log entry", "user_id", userID, "error", err)
		entry.ID = ""
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{
		Name:     result.Record.Name,
		Calories: result.Record.Calories,
		Protein:  result.Record.Protein,
		Carbs:    result.Record.Carbs,
		Fat:      result.Record.Fat,
		Provider: result.Provider,
		FellBack: result.FellBack,
		Attempts: result.Attempts,
		MealID:   entry.ID,
	})
}

type CreateJobResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.writeError(w, r, errUnauthorized)
		return
	}
	if s.jobs == nil || s.queue == nil {
		s.writeError(w, r, errJobsUnavailable)
		return
	}

	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Reject malformed input before anything is queued.
	payload := req.payload("", userID, r.Header.Get("Accept-Language"))
	in, err := payload.Input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job := jobs.New(userID, in.Kind)
	payload.JobID = job.ID
	if err := s.jobs.Save(r.Context(), job); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := worker.EnqueueAnalysis(r.Context(), s.queue, payload); err != nil {
		slog.Error("Failed to enqueue analysis", "job_id", job.ID, "error", err)
		s.writeError(w, r, apperrors.NewInternalError("failed to enqueue analysis", "ENQUEUE_FAILED", err))
		return
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.writeError(w, r, errUnauthorized)
		return
	}
	if s.jobs == nil {
		s.writeError(w, r, errJobsUnavailable)
		return
	}

	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Other users' jobs look absent.
	if job.UserID != userID {
		s.writeError(w, r, apperrors.NewNotFoundError("job not found", "JOB_NOT_FOUND", ""))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

type ProvidersResponse struct {
	Default   string                `json:"default"`
	Providers []provider.Descriptor `json:"providers"`
}

func (s *Server) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Default:   s.providers.DefaultName(),
		Providers: s.providers.Describe(),
	})
}

type SetDefaultRequest struct {
	Name string `json:"name"`
}

func (s *Server) HandleSetDefaultProvider(w http.ResponseWriter, r *http.Request) {
	var req SetDefaultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		s.writeError(w, r, apperrors.NewValidationError("name is required", "MISSING_PROVIDER_NAME", ""))
		return
	}

	if err := s.providers.SetDefault(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	slog.Info("Default provider changed", "provider", req.Name)

	s.HandleListProviders(w, r)
}

type MealsResponse struct {
	Meals []meallog.Entry `json:"meals"`
}

func (s *Server) HandleListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.writeError(w, r, errUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.NewValidationError("limit must be a number", "INVALID_LIMIT", ""))
			return
		}
		limit = n
	}

	entries, err := s.meals.List(r.Context(), userID, meallog.ClampLimit(limit))
	if err != nil {
		s.writeError(w, r, apperrors.NewInternalError("failed to list meals", "MEAL_LOG_UNAVAILABLE", err))
		return
	}
	if entries == nil {
		entries = []meallog.Entry{}
	}

	writeJSON(w, http.StatusOK, MealsResponse{Meals: entries})
}

type HealthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Providers: s.providers.Health()})
}

var (
	errUnauthorized    = apperrors.NewUnauthorizedError("no authenticated user")
	errJobsUnavailable = &apperrors.AppError{Type: apperrors.ErrorTypeConfiguration, Message: "asynchronous analysis is not configured", StatusCode: http.StatusServiceUnavailable, ErrorCode: "JOBS_UNAVAILABLE"}
)

// writeError answers with the localized message of err and its code. The
// status comes from the AppError; anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := string(apperrors.ErrorTypeInternal)
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.StatusCode
		code = appErr.Code()
	}

	switch {
	case status >= 500:
		slog.Error("Request failed", "path", r.URL.Path, "code", code, "error", err)
	case apperrors.IsType(err, apperrors.ErrorTypeCancelled):
		slog.Info("Request cancelled", "path", r.URL.Path)
	default:
		slog.Debug("Request rejected", "path", r.URL.Path, "code", code, "error", err)
	}

	writeJSON(w, status, ErrorResponse{
		Error: apperrors.Localize(err, r.Header.Get("Accept-Language")),
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(v)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewValidationError("request body too large", "UPLOAD_TOO_LARGE", "Send a smaller file.")
	}
	if errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("request body is empty", "INVALID_REQUEST", "")
	}
	return apperrors.NewValidationError("invalid request body", "INVALID_REQUEST", "")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
