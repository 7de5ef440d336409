package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"time"

	"github.com/receipto/console/config"
)

// BackendService is the typed client for the Receipto API. Every call issues
// exactly one HTTP request; retry policy belongs to the caller.
type BackendService struct {
	config     *config.BackendConfig
	httpClient *http.Client
}

// APIError carries the HTTP status and the backend's detail message
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Settings mirrors the backend settings resource. Secret values are never
// returned, only configured flags.
type Settings struct {
	LLMProvider               string `json:"llm_provider"`
	LLMModel                  string `json:"llm_model"`
	Theme                     string `json:"theme"`
	AWSRegion                 string `json:"aws_region"`
	AWSAccessKeyConfigured    bool   `json:"aws_access_key_configured"`
	AWSSecretKeyConfigured    bool   `json:"aws_secret_key_configured"`
	GoogleAPIKeyConfigured    bool   `json:"google_api_key_configured"`
	OpenAIAPIKeyConfigured    bool   `json:"openai_api_key_configured"`
	AnthropicAPIKeyConfigured bool   `json:"anthropic_api_key_configured"`
}

// SettingsUpdate is a partial settings patch
type SettingsUpdate struct {
	LLMProvider        *string `json:"llm_provider,omitempty"`
	LLMModel           *string `json:"llm_model,omitempty"`
	Theme              *string `json:"theme,omitempty"`
	AWSRegion          *string `json:"aws_region,omitempty"`
	AWSAccessKeyID     *string `json:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey *string `json:"aws_secret_access_key,omitempty"`
	GoogleAPIKey       *string `json:"google_api_key,omitempty"`
	OpenAIAPIKey       *string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey    *string `json:"anthropic_api_key,omitempty"`
}

// APIKeyUpdate carries raw credentials to store server-side
type APIKeyUpdate struct {
	AWSAccessKeyID     *string `json:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey *string `json:"aws_secret_access_key,omitempty"`
	AWSRegion          *string `json:"aws_region,omitempty"`
	GoogleAPIKey       *string `json:"google_api_key,omitempty"`
	OpenAIAPIKey       *string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey    *string `json:"anthropic_api_key,omitempty"`
}

// LLMConfigUpdate selects the active provider and model
type LLMConfigUpdate struct {
	Provider string `json:"provider"` // gemini, openai, anthropic
	Model    string `json:"model"`
}

// LLMModel describes one selectable model
type LLMModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LLMModels maps provider name to its model catalog
type LLMModels struct {
	Providers map[string][]LLMModel `json:"providers"`
}

// Category is a receipt category with an optional monthly budget
type Category struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	MonthlyBudgetLimit *float64 `json:"monthly_budget_limit"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

type CategoryCreate struct {
	Name               string   `json:"name"`
	MonthlyBudgetLimit *float64 `json:"monthly_budget_limit,omitempty"`
}

type CategoryUpdate struct {
	Name               *string  `json:"name,omitempty"`
	MonthlyBudgetLimit *float64 `json:"monthly_budget_limit,omitempty"`
}

// UploadResponse is the backend's answer to a receipt upload
type UploadResponse struct {
	ReceiptID string `json:"receipt_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func NewBackendService(cfg *config.BackendConfig) *BackendService {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BackendService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do sends one request and decodes the response into out. A non-2xx status
// becomes an *APIError with the backend's detail message; a 204 (or nil out)
// skips body decoding.
func (s *BackendService) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeAPIError extracts the detail message from an error body. A malformed
// or missing body still yields a readable message.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: "Unknown error"}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr
	}

	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		apiErr.Detail = parsed.Detail
	}
	return apiErr
}

func (s *BackendService) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return s.do(req, out)
}

func (s *BackendService) sendJSON(ctx context.Context, method, path string, in, out any) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return s.do(req, out)
}

// GetSettings fetches the current settings
func (s *BackendService) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := s.getJSON(ctx, "/settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies a partial settings patch
func (s *BackendService) UpdateSettings(ctx context.Context, updates *SettingsUpdate) (*Settings, error) {
	var settings Settings
	if err := s.sendJSON(ctx, http.MethodPatch, "/settings", updates, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateAPIKeys stores raw credentials server-side; the response only
// carries configured flags, never the secrets themselves
func (s *BackendService) UpdateAPIKeys(ctx context.Context, updates *APIKeyUpdate) (*Settings, error) {
	var settings Settings
	if err := s.sendJSON(ctx, http.MethodPatch, "/settings/api-keys", updates, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateLLMConfig selects the active LLM provider and model
func (s *BackendService) UpdateLLMConfig(ctx context.Context, cfg *LLMConfigUpdate) (*Settings, error) {
	var settings Settings
	if err := s.sendJSON(ctx, http.MethodPatch, "/settings/llm", cfg, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetLLMModels fetches the per-provider model catalog
func (s *BackendService) GetLLMModels(ctx context.Context) (*LLMModels, error) {
	var models LLMModels
	if err := s.getJSON(ctx, "/llm/models", &models); err != nil {
		return nil, err
	}
	return &models, nil
}

// ListCategories fetches all categories, sorted by name for display
func (s *BackendService) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.getJSON(ctx, "/categories", &categories); err != nil {
		return nil, err
	}
	SortCategories(categories)
	return categories, nil
}

// GetCategory fetches a single category
func (s *BackendService) GetCategory(ctx context.Context, id string) (*Category, error) {
	var category Category
	if err := s.getJSON(ctx, "/categories/"+id, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory creates a new category
func (s *BackendService) CreateCategory(ctx context.Context, create *CategoryCreate) (*Category, error) {
	var category Category
	if err := s.sendJSON(ctx, http.MethodPost, "/categories", create, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory applies a partial category patch
func (s *BackendService) UpdateCategory(ctx context.Context, id string, updates *CategoryUpdate) (*Category, error) {
	var category Category
	if err := s.sendJSON(ctx, http.MethodPatch, "/categories/"+id, updates, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory deletes a category; the backend answers 204
func (s *BackendService) DeleteCategory(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.config.APIURL+"/categories/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return s.do(req, nil)
}

// UploadReceipt submits one file as a single-part binary form. Success yields
// the backend-assigned receipt ID.
func (s *BackendService) UploadReceipt(ctx context.Context, filename, contentType string, data io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/receipts/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result UploadResponse
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SortCategories orders categories by name, the order the dashboard shows
func SortCategories(categories []Category) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
}
