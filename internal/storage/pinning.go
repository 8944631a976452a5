package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// PinningClient uploads documents to a Pinata-compatible pinning service.
type PinningClient struct {
	endpoint string
	jwt      string
	client   *http.Client
}

func NewPinningClient(endpoint, jwt string, timeout time.Duration) *PinningClient {
	return &PinningClient{
		endpoint: endpoint,
		jwt:      jwt,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *PinningClient) Name() string { return "pinning" }

func (p *PinningClient) Store(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinning service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pinning service returned %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding pin response: %w", err)
	}
	if result.IpfsHash == "" {
		return "", fmt.Errorf("pinning service returned no hash")
	}
	return result.IpfsHash, nil
}
