package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleClient is a minimal Google Speech-to-Text REST client for
// Telegram voice notes (OGG/Opus).
type GoogleClient struct {
	apiKey     string
	url        string
	language   string
	httpClient *http.Client
}

// NewGoogleClient creates a speech client. recognizeURL is the
// speech:recognize endpoint (e.g. "https://speech.googleapis.com/v1/speech:recognize").
func NewGoogleClient(apiKey, recognizeURL, language string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		apiKey:   apiKey,
		url:      recognizeURL,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe downloads the voice file and sends it for recognition.
// Audio with no recognizable speech yields NoSpeechPlaceholder, not an
// error.
func (c *GoogleClient) Transcribe(ctx context.Context, fileURL string) (string, error) {
	audio, err := c.download(ctx, fileURL)
	if err != nil {
		return "", err
	}

	reqBody := recognizeRequest{
		Config: recognizeConfig{
			Encoding:                   "OGG_OPUS",
			SampleRateHertz:            48000,
			LanguageCode:               c.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal recognize request: %w", err)
	}

	endpoint := c.url + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognize request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read recognize response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognize non-success status=%d", resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse recognize response: %w", err)
	}

	var lines []string
	for _, result := range parsed.Results {
		if len(result.Alternatives) > 0 && result.Alternatives[0].Transcript != "" {
			lines = append(lines, result.Alternatives[0].Transcript)
		}
	}
	if len(lines) == 0 {
		return NoSpeechPlaceholder, nil
	}
	return strings.Join(lines, "\n"), nil
}

func (c *GoogleClient) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create voice download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice download non-success status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read voice file: %w", err)
	}
	return data, nil
}
