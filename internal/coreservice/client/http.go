package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

const maxBodyBytes = 1 << 20

// requester is the shared JSON transport for the collaborating services.
type requester struct {
	service string
	baseURL string
	client  *http.Client
	auth    func() (string, error)
}

func newRequester(service, baseURL string, timeout time.Duration, auth func() (string, error)) *requester {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &requester{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		auth:    auth,
	}
}

type errorBody struct {
	Opcode  int    `json:"opcode"`
	Message string `json:"message"`
}

func (r *requester) do(ctx context.Context, method, path string, in, out any) error {
	if r == nil || r.baseURL == "" {
		return fmt.Errorf("%s: %w", r.serviceName(), domain.ErrNotConfigured)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth != nil {
		token, err := r.auth()
		if err != nil {
			return fmt.Errorf("%s: %w: %v", r.service, domain.ErrUnauthorized, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", r.service, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstream := &domain.UpstreamError{Service: r.service, StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			upstream.Opcode = eb.Opcode
			upstream.Message = eb.Message
		}
		return upstream
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.service, err)
	}
	return nil
}

func (r *requester) serviceName() string {
	if r == nil {
		return "coreservice"
	}
	return r.service
}
