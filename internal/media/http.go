package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hndao/inkpost/internal/storageid"
)

// HTTPGateway talks to a Cloudinary-style media service: multipart upload
// returning {url}, JSON delete by public id returning {result}.
type HTTPGateway struct { // implements Gateway
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (g *HTTPGateway) Upload(ctx context.Context, file io.Reader, filename, folder string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("error building upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("error reading upload file: %w", err)
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("error building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("error building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected: %s", resp.Status)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("error decoding upload response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}

	mediaLogger.Debug().Str("url", payload.URL).Str("folder", folder).Msg("Image uploaded")
	return payload.URL, nil
}

func (g *HTTPGateway) Remove(ctx context.Context, id storageid.Identifier) (RemoveResult, error) {
	reqBody, err := json.Marshal(map[string]string{"public_id": id.PublicID()})
	if err != nil {
		return RemoveFailed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/delete-image", bytes.NewReader(reqBody))
	if err != nil {
		return RemoveFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return RemoveFailed, fmt.Errorf("error deleting image: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RemoveFailed, fmt.Errorf("error decoding delete response: %w", err)
	}

	switch payload.Result {
	case "ok":
		return RemoveDeleted, nil
	case "not found":
		return RemoveNotFound, nil
	default:
		// Any non-"ok" result is a failure outcome, never a panic.
		return RemoveFailed, fmt.Errorf("delete returned %q for %s", payload.Result, id.PublicID())
	}
}
