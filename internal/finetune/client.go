package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/anatolykoptev/go_titlegen/internal/engine"
)

// DefaultSuffix is appended to the fine-tuned model name.
const DefaultSuffix = "title-gen"

// Job is a fine-tuning job as returned by the API.
type Job struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Model          string `json:"model"`
	FineTunedModel string `json:"fine_tuned_model"`
	TrainingFile   string `json:"training_file"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to the /files and /fine_tuning endpoints.
type Client struct {
	base     string
	apiKey   string
	http     *http.Client
	maxTries uint
	initial  time.Duration
	maxWait  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the attempt budget and first backoff interval.
func WithRetry(maxTries uint, initial time.Duration) ClientOption {
	return func(c *Client) {
		c.maxTries = maxTries
		c.initial = initial
	}
}

// NewClient builds a fine-tuning client for an OpenAI-compatible base URL
// such as https://api.openai.com/v1.
func NewClient(base, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		base:     strings.TrimRight(base, "/"),
		apiKey:   apiKey,
		http:     engine.NewHTTPClient(5 * time.Minute),
		maxTries: 4,
		initial:  time.Second,
		maxWait:  30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UploadFile uploads a JSONL training file and returns its file ID.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	err = c.do(ctx, "upload file", func() (*http.Request, error) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		if err := mw.WriteField("purpose", "fine-tune"); err != nil {
			return nil, err
		}
		fw, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/files", &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("upload file: response has no id")
	}
	return out.ID, nil
}

// CreateJob starts a fine-tuning job.
func (c *Client) CreateJob(ctx context.Context, fileID, model, suffix string) (Job, error) {
	payload, err := json.Marshal(map[string]string{
		"training_file": fileID,
		"model":         model,
		"suffix":        suffix,
	})
	if err != nil {
		return Job{}, err
	}
	var job Job
	err = c.do(ctx, "create job", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/fine_tuning/jobs", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &job)
	return job, err
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	err := c.do(ctx, "get job", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/fine_tuning/jobs/"+id, nil)
	}, &job)
	return job, err
}

// Submit uploads path, removes the local copy once the upload succeeded and
// starts the job.
func (c *Client) Submit(ctx context.Context, path, model, suffix string) (Job, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	fileID, err := c.UploadFile(ctx, path)
	if err != nil {
		return Job{}, err
	}
	slog.Info("training file uploaded", slog.String("file_id", fileID))
	if err := os.Remove(path); err != nil {
		slog.Warn("could not remove local training file", slog.String("path", path), slog.Any("error", err))
	}

	job, err := c.CreateJob(ctx, fileID, model, suffix)
	if err != nil {
		return Job{}, err
	}
	slog.Info("fine-tuning job submitted",
		slog.String("job_id", job.ID),
		slog.String("model", model),
		slog.String("suffix", suffix))
	return job, nil
}

// do sends the request built by build, retrying 429/5xx and transient
// network errors, and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op string, build func() (*http.Request, error), out any) error {
	operation := func() ([]byte, error) {
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if engine.IsRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		serr := &engine.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if engine.IsRetryableStatus(resp.StatusCode) {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.maxWait

	body, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
