package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postJSON sends body to url and decodes a 200 response into out.
// Every failure is returned as a *ProviderError.
func postJSON(ctx context.Context, hc *http.Client, provider Provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Provider: provider, Kind: KindResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Provider: provider, Kind: KindNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &ProviderError{Provider: provider, Kind: KindNetwork, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: provider, Kind: KindNetwork, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{
			Provider:   provider,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{Provider: provider, Kind: KindResponse, Message: "failed to parse response", Cause: err}
	}
	return nil
}

// apiErrorMessage pulls error.message out of an error body, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		return "empty error body"
	}
	return msg
}

// asProviderError converts a context error into a network ProviderError.
func asProviderError(provider Provider, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Kind: KindNetwork, Message: fmt.Sprintf("call failed: %v", err), Cause: err}
}
