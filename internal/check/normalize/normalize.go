// Package normalize canonicalizes source code before embedding so that
// renamed identifiers and cosmetic edits embed identically.
package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "codearena/pkg/errors"
)

const normalizePrompt = `Normalize the following source code for similarity analysis:
- strip comments and blank lines
- rename variables to VAR_1, VAR_2, ..., functions to FUNC_1, ..., classes to CLASS_1, ...
- replace numeric literals with NUM_i and string literals with STR_i
- normalize spacing and indentation
- sort import statements
- rewrite equivalent syntax to one canonical form
Return only the normalized code, no explanations.`

// Normalizer canonicalizes one piece of source code.
type Normalizer interface {
	Normalize(ctx context.Context, code string) (string, error)
}

// LLMNormalizer calls a Gemini-style generateContent endpoint.
type LLMNormalizer struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewLLMNormalizer creates a normalizer against the given API endpoint.
// endpoint is the base URL up to /models; model is inserted into the path.
func NewLLMNormalizer(endpoint, apiKey, model string) *LLMNormalizer {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &LLMNormalizer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents       []content       `json:"contents"`
	SystemInstruct *systemInstruct `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type systemInstruct struct {
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Normalize sends the code through the model and returns its canonical form.
func (n *LLMNormalizer) Normalize(ctx context.Context, code string) (string, error) {
	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: code}}},
		},
		SystemInstruct: &systemInstruct{Parts: []part{{Text: normalizePrompt}}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", appErr.Wrap(err, appErr.NormalizationFailed)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", n.endpoint, n.model, n.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", appErr.Wrap(err, appErr.NormalizationFailed)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return "", appErr.Wrap(err, appErr.NormalizationFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", appErr.Wrap(err, appErr.NormalizationFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return "", appErr.Newf(appErr.NormalizationFailed, "normalizer status %d: %s", resp.StatusCode, respBody)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", appErr.Wrap(err, appErr.NormalizationFailed)
	}
	if len(out.Candidates) == 0 {
		return "", appErr.Newf(appErr.NormalizationFailed, "normalizer returned no candidates")
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	normalized := strings.TrimSpace(text.String())
	if normalized == "" {
		return "", appErr.Newf(appErr.NormalizationFailed, "normalizer returned empty content")
	}
	return stripCodeFence(normalized), nil
}

// stripCodeFence removes a surrounding markdown fence if the model added one.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NoopNormalizer returns the code unchanged. Used when no LLM endpoint is
// configured.
type NoopNormalizer struct{}

// Normalize returns the input as-is.
func (NoopNormalizer) Normalize(_ context.Context, code string) (string, error) {
	return code, nil
}
