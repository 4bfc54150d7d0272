// Package api is the REST client of the transcription backend: audio uploads, template
// management and template processing.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	pathUpload    = "/upload_audio"
	pathTemplates = "/templates/"
	pathProcess   = "/process"
	pathConfig    = "/config"

	requestIDHeader = "X-Request-ID"
)

type Config struct {
	BaseURL string
	// Timeout applies to every call without a more specific one.
	Timeout time.Duration
	// UploadTimeout covers transcription of uploaded audio.
	UploadTimeout time.Duration
	// TemplateUploadTimeout covers template file uploads.
	TemplateUploadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:               "http://localhost:8000",
		Timeout:               30 * time.Second,
		UploadTimeout:         120 * time.Second,
		TemplateUploadTimeout: 60 * time.Second,
	}
}

type Service struct {
	client *resty.Client
	cfg    Config
	logger zerolog.Logger
}

type callOptions struct {
	timeout time.Duration
}

// CallOption tunes a single call.
type CallOption func(*callOptions)

// WithTimeout overrides the timeout of one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

func New(cfg Config, logger zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = def.UploadTimeout
	}
	if cfg.TemplateUploadTimeout <= 0 {
		cfg.TemplateUploadTimeout = def.TemplateUploadTimeout
	}

	// Deadlines are carried by the request context, so the client itself has no timeout.
	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))

	return &Service{
		client: cli,
		cfg:    cfg,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// request prepares a call bounded by the first timeout among opts, else fallback.
func (s *Service) request(ctx context.Context, fallback time.Duration, opts []CallOption) (*resty.Request, context.CancelFunc) {
	o := callOptions{timeout: fallback}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)

	req := s.client.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString())

	return req, cancel
}

func (s *Service) jsonRequest(ctx context.Context, opts []CallOption) (*resty.Request, context.CancelFunc) {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	req.SetHeader("Content-Type", "application/json")
	return req, cancel
}

// do runs the call and decodes a successful JSON answer into out, when out is not nil.
func (s *Service) do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn().Str("method", method).Str("path", path).Msg("request timed out")
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if err = mapHTTPError(resp); err != nil {
		s.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode()).
			Err(err).
			Msg("request failed")
		return err
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}

	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	return nil
}

// UploadAudio uploads an audio file for transcription.
func (s *Service) UploadAudio(ctx context.Context, filename string, audio io.Reader, opts ...CallOption) (TranscriptionResult, error) {
	req, cancel := s.request(ctx, s.cfg.UploadTimeout, opts)
	defer cancel()

	req.SetFileReader("file", filename, audio)

	var out TranscriptionResult
	if err := s.do(req, http.MethodPost, pathUpload, &out); err != nil {
		return TranscriptionResult{}, err
	}
	return out, nil
}

func (s *Service) ListTemplates(ctx context.Context, opts ...CallOption) ([]Template, error) {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	defer cancel()

	var out []Template
	if err := s.do(req, http.MethodGet, pathTemplates, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput, opts ...CallOption) (Template, error) {
	req, cancel := s.jsonRequest(ctx, opts)
	defer cancel()

	req.SetBody(in)

	var out Template
	if err := s.do(req, http.MethodPost, pathTemplates, &out); err != nil {
		return Template{}, err
	}
	return out, nil
}

// UploadTemplateFile uploads a Word or Excel template. Empty name and description are not sent.
func (s *Service) UploadTemplateFile(
	ctx context.Context,
	filename string,
	file io.Reader,
	name, description string,
	opts ...CallOption,
) (Template, error) {
	req, cancel := s.request(ctx, s.cfg.TemplateUploadTimeout, opts)
	defer cancel()

	req.SetFileReader("file", filename, file)

	form := make(map[string]string)
	if name != "" {
		form["name"] = name
	}
	if description != "" {
		form["description"] = description
	}
	if len(form) > 0 {
		req.SetFormData(form)
	}

	var out Template
	if err := s.do(req, http.MethodPost, strings.TrimSuffix(pathTemplates, "/")+"/upload", &out); err != nil {
		return Template{}, err
	}
	return out, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, in TemplateUpdate, opts ...CallOption) (Template, error) {
	req, cancel := s.jsonRequest(ctx, opts)
	defer cancel()

	req.SetBody(in)

	var out Template
	if err := s.do(req, http.MethodPut, pathTemplates+url.PathEscape(id), &out); err != nil {
		return Template{}, err
	}
	return out, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string, opts ...CallOption) error {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	defer cancel()

	return s.do(req, http.MethodDelete, pathTemplates+url.PathEscape(id), nil)
}

// ProcessTemplate starts filling a template from a transcription.
func (s *Service) ProcessTemplate(ctx context.Context, in ProcessRequest, opts ...CallOption) (ProcessStatus, error) {
	req, cancel := s.jsonRequest(ctx, opts)
	defer cancel()

	req.SetBody(in)

	var out ProcessStatus
	if err := s.do(req, http.MethodPost, pathProcess, &out); err != nil {
		return ProcessStatus{}, err
	}
	return out, nil
}

// ProcessResult polls the status of a processing run.
func (s *Service) ProcessResult(ctx context.Context, processID string, opts ...CallOption) (ProcessStatus, error) {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	defer cancel()

	var out ProcessStatus
	if err := s.do(req, http.MethodGet, pathProcess+"/"+url.PathEscape(processID), &out); err != nil {
		return ProcessStatus{}, err
	}
	if out.ProcessID == "" {
		out.ProcessID = processID
	}
	return out, nil
}

// WaitProcessResult polls ProcessResult every interval until the run is done or ctx ends.
func (s *Service) WaitProcessResult(ctx context.Context, processID string, interval time.Duration) (ProcessStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := s.ProcessResult(ctx, processID)
		if err != nil {
			return ProcessStatus{}, err
		}
		if status.Done() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

var filenamePattern = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)

// DownloadProcessedFile writes the output document of a run to w and returns its file name.
func (s *Service) DownloadProcessedFile(ctx context.Context, processID string, w io.Writer, opts ...CallOption) (string, error) {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	defer cancel()

	path := pathProcess + "/" + url.PathEscape(processID) + "/download"

	resp, err := req.Get(path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: GET %s", ErrTimeout, path)
		}
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	if _, err = w.Write(resp.Body()); err != nil {
		return "", fmt.Errorf("write processed file: %w", err)
	}

	return attachmentFilename(resp.Header().Get("Content-Disposition"), "processed_"+processID), nil
}

func attachmentFilename(contentDisposition, fallback string) string {
	if contentDisposition == "" {
		return fallback
	}
	if _, params, err := mime.ParseMediaType(contentDisposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if m := filenamePattern.FindStringSubmatch(contentDisposition); m != nil {
		return m[1]
	}
	return fallback
}

// Config returns the backend configuration document.
func (s *Service) Config(ctx context.Context, opts ...CallOption) (map[string]any, error) {
	req, cancel := s.request(ctx, s.cfg.Timeout, opts)
	defer cancel()

	out := make(map[string]any)
	if err := s.do(req, http.MethodGet, pathConfig, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateConfig(ctx context.Context, cfg map[string]any, opts ...CallOption) (map[string]any, error) {
	req, cancel := s.jsonRequest(ctx, opts)
	defer cancel()

	req.SetBody(cfg)

	out := make(map[string]any)
	if err := s.do(req, http.MethodPut, pathConfig, &out); err != nil {
		return nil, err
	}
	return out, nil
}
