package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
)

const (
	defaultHTTPTimeout = 300 * time.Second
	providerOpenAI     = "openai"
)

// ResponsesProvider talks to the OpenAI Responses API (POST /responses).
type ResponsesProvider struct {
	providerName string
	apiBase      string
	defaultModel string
	auth         AuthStrategy
	httpClient   *http.Client
}

// NewFromConfig builds the provider for the dialogue loop and the memory
// pipeline from provider credentials in cfg.
func NewFromConfig(cfg *config.Config) (*ResponsesProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var auth AuthStrategy
	apiKey := strings.TrimSpace(cfg.Provider.APIKey)
	tokenFile := strings.TrimSpace(cfg.Provider.OAuthTokenFile)
	switch {
	case apiKey != "" && tokenFile != "":
		return nil, fmt.Errorf("multiple OpenAI credential sources configured (set only one of OPENAI_API_KEY, provider.oauth_token_file)")
	case apiKey != "":
		auth = NewAPIKeyAuth(NewStaticTokenSource(apiKey, "provider.api_key"))
	case tokenFile != "":
		auth = NewBearerTokenAuth(NewFileTokenSource(config.ExpandHome(tokenFile)))
	default:
		return nil, fmt.Errorf("OpenAI credentials are required (set OPENAI_API_KEY or provider.oauth_token_file)")
	}

	return NewResponsesProvider(providerOpenAI, cfg.APIBase(), cfg.Memory.Model, strings.TrimSpace(cfg.Provider.Proxy), auth)
}

func NewResponsesProvider(providerName, apiBase, defaultModel, proxy string, auth AuthStrategy) (*ResponsesProvider, error) {
	providerName = strings.TrimSpace(strings.ToLower(providerName))
	if providerName == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("%s API base not configured", providerName)
	}
	if auth == nil {
		return nil, fmt.Errorf("%s auth is not configured", providerName)
	}

	client := &http.Client{Timeout: defaultHTTPTimeout}
	proxy = strings.TrimSpace(proxy)
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse %s proxy: %w", providerName, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &ResponsesProvider{
		providerName: providerName,
		apiBase:      apiBase,
		defaultModel: strings.TrimSpace(defaultModel),
		auth:         auth,
		httpClient:   client,
	}, nil
}

func (p *ResponsesProvider) GetDefaultModel() string {
	if p == nil {
		return ""
	}
	return p.defaultModel
}

// Generate performs one blocking round-trip. Failures of any kind are
// reported as *GenerationError so callers can apply their degraded paths.
func (p *ResponsesProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if p == nil {
		return "", generationErr(providerOpenAI, 0, fmt.Errorf("provider not initialized"))
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.GetDefaultModel()
	}

	requestBody := map[string]interface{}{
		"model": model,
		"input": buildResponsesInput(req),
	}
	if req.MaxOutputTokens > 0 {
		requestBody["max_output_tokens"] = req.MaxOutputTokens
	}
	// Reasoning/verbosity tiers only exist on gpt-5 family models.
	if strings.HasPrefix(model, "gpt-5") {
		if effort := strings.TrimSpace(req.ReasoningEffort); effort != "" {
			requestBody["reasoning"] = map[string]interface{}{"effort": effort}
		}
		if verbosity := strings.TrimSpace(req.Verbosity); verbosity != "" {
			requestBody["text"] = map[string]interface{}{"verbosity": verbosity}
		}
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := p.apiBase + "/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.auth.Apply(ctx, httpReq); err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("apply auth: %w", err))
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", generationErr(p.providerName, resp.StatusCode, fmt.Errorf("%s", extractAPIError(body)))
	}

	text, err := parseResponsesOutput(body)
	if err != nil {
		return "", generationErr(p.providerName, 0, fmt.Errorf("parse response: %w", err))
	}
	return text, nil
}

// buildResponsesInput flattens the system preamble and prompt into the single
// input string the Responses API accepts. Structured requests get an explicit
// JSON-only instruction appended.
func buildResponsesInput(req GenerateRequest) string {
	parts := make([]string, 0, 3)
	if sys := strings.TrimSpace(req.System); sys != "" {
		parts = append(parts, sys)
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		parts = append(parts, prompt)
	}
	if req.Structured {
		parts = append(parts, "Respond with valid JSON only.")
	}
	return strings.Join(parts, "\n\n")
}

func parseResponsesOutput(body []byte) (string, error) {
	var apiResponse struct {
		ID         string      `json:"id"`
		Status     string      `json:"status"`
		OutputText interface{} `json:"output_text"`
		Output     []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			Text string `json:"text"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", err
	}

	contentParts := make([]string, 0, 4)
	if top := flattenOutputText(apiResponse.OutputText); top != "" {
		contentParts = append(contentParts, top)
	}

	for _, item := range apiResponse.Output {
		switch strings.TrimSpace(strings.ToLower(item.Type)) {
		case "message":
			for _, part := range item.Content {
				if txt := strings.TrimSpace(part.Text); txt != "" {
					contentParts = append(contentParts, txt)
				}
			}
			if txt := strings.TrimSpace(item.Text); txt != "" {
				contentParts = append(contentParts, txt)
			}
		case "output_text", "text":
			if txt := strings.TrimSpace(item.Text); txt != "" {
				contentParts = append(contentParts, txt)
			}
		}
	}

	return strings.TrimSpace(strings.Join(contentParts, "\n")), nil
}

func flattenOutputText(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func extractAPIError(body []byte) string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 300 {
		trimmed = trimmed[:300]
	}
	return trimmed
}
