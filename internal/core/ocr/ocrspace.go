package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

const (
	DefaultOCRSpaceURL      = "https://api.ocr.space/parse/image"
	DefaultRemoteTimeout    = 30 * time.Second
	DefaultMaxUploadBytes   = 1 << 20
	keyValidationTimeout    = 10 * time.Second
	autoDetectEngineVariant = 2 // language=auto requires OCREngine 2
)

// OCRSpaceConfig configures the OCR.space adapter. APIKey is required.
type OCRSpaceConfig struct {
	APIKey         string
	URL            string
	EngineVariant  int
	Timeout        time.Duration
	MaxUploadBytes int64
}

// OCRSpaceConfigFrom maps the remote section of the application config.
func OCRSpaceConfigFrom(c common.RemoteConfig) OCRSpaceConfig {
	return OCRSpaceConfig{
		APIKey:         c.APIKey,
		URL:            c.URL,
		EngineVariant:  c.EngineVariant,
		Timeout:        c.Timeout,
		MaxUploadBytes: c.MaxUploadBytes,
	}
}

// OCRSpaceEngine submits images to the OCR.space parse endpoint.
type OCRSpaceEngine struct {
	cfg    OCRSpaceConfig
	client *http.Client
	logger *slog.Logger
}

// OCRSpaceOption customizes an OCRSpaceEngine.
type OCRSpaceOption func(*OCRSpaceEngine)

// WithHTTPClient replaces the HTTP client. Per-call deadlines still come
// from the configured timeout.
func WithHTTPClient(c *http.Client) OCRSpaceOption {
	return func(e *OCRSpaceEngine) { e.client = c }
}

// NewOCRSpaceEngine fails with common.ErrConfig when no API key is set.
func NewOCRSpaceEngine(cfg OCRSpaceConfig, logger *slog.Logger, opts ...OCRSpaceOption) (*OCRSpaceEngine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewAppError("REMOTE_UNCONFIGURED", "OCR_SPACE_API_KEY is not set", common.ErrConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultOCRSpaceURL
	}
	if cfg.EngineVariant <= 0 {
		cfg.EngineVariant = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	e := &OCRSpaceEngine{cfg: cfg, client: &http.Client{}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *OCRSpaceEngine) Name() constants.EngineName { return constants.EngineRemote }

// Available reports whether the engine is configured. It does not call the
// service; use ValidateKey for that.
func (e *OCRSpaceEngine) Available(context.Context) error { return nil }

// ocrSpaceLanguage maps a language selector onto the service's codes.
// Mixed Arabic and French text uses the service's auto detection.
func ocrSpaceLanguage(lang constants.Language) string {
	switch lang {
	case constants.LanguageArabic:
		return "ara"
	case constants.LanguageFrench:
		return "fre"
	case constants.LanguageEnglish:
		return "eng"
	default:
		return "auto"
	}
}

// ExtractRaw uploads img and returns the first parsed text block.
func (e *OCRSpaceEngine) ExtractRaw(ctx context.Context, img *image.Gray, lang constants.Language) (string, error) {
	if img == nil {
		return "", common.NewAppError("OCR_SPACE", "nil image", common.ErrService)
	}
	payload, err := encodeForUpload(img, e.cfg.MaxUploadBytes)
	if err != nil {
		return "", common.NewAppError("OCR_SPACE", "prepare upload", fmt.Errorf("%w: %v", common.ErrService, err))
	}

	apiLang := ocrSpaceLanguage(lang)
	variant := e.cfg.EngineVariant
	if apiLang == "auto" {
		variant = autoDetectEngineVariant
	}
	fields := map[string]string{
		"apikey":            e.cfg.APIKey,
		"language":          apiLang,
		"OCREngine":         strconv.Itoa(variant),
		"detectOrientation": "true",
		"scale":             "true",
		"isTable":           "false",
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	raw, status, err := sendMultipart(callCtx, e.client, e.cfg.URL, fields, multipartFile{
		field:       "file",
		filename:    payload.filename,
		contentType: payload.contentType,
		data:        payload.data,
	}, e.logger)
	if err != nil {
		return "", networkError(err)
	}
	return parseOCRSpaceResponse(raw, status)
}

// ValidateKey sends a tiny blank image and reports whether the service
// accepted the credential.
func (e *OCRSpaceEngine) ValidateKey(ctx context.Context) error {
	blank := image.NewGray(image.Rect(0, 0, 100, 30))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	payload, err := encodeForUpload(blank, e.cfg.MaxUploadBytes)
	if err != nil {
		return common.NewAppError("OCR_SPACE", "prepare probe", fmt.Errorf("%w: %v", common.ErrService, err))
	}

	callCtx, cancel := context.WithTimeout(ctx, min(keyValidationTimeout, e.cfg.Timeout))
	defer cancel()
	raw, status, err := sendMultipart(callCtx, e.client, e.cfg.URL, map[string]string{
		"apikey":    e.cfg.APIKey,
		"language":  "eng",
		"OCREngine": strconv.Itoa(autoDetectEngineVariant),
	}, multipartFile{field: "file", filename: "probe.png", contentType: payload.contentType, data: payload.data}, e.logger)
	if err != nil {
		return networkError(err)
	}
	_, err = parseOCRSpaceResponse(raw, status)
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if status == http.StatusForbidden || status == http.StatusUnauthorized ||
		(strings.Contains(msg, "api key") && strings.Contains(msg, "invalid")) {
		return common.NewAppError("INVALID_API_KEY", "OCR.space rejected the API key", err)
	}
	// other processing errors mean the key itself was accepted
	e.logger.Debug("ocr.remote.validate_key.processing_error", "error", err)
	return nil
}

func networkError(err error) error {
	msg := "ocr.space request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "ocr.space request timed out"
	}
	return common.NewAppError("OCR_SPACE_NETWORK", msg, fmt.Errorf("%w: %v", common.ErrNetwork, err))
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string      `json:"ParsedText"`
		FileParseExitCode flexInt     `json:"FileParseExitCode"`
		ErrorMessage      flexMessage `json:"ErrorMessage"`
		ErrorDetails      flexMessage `json:"ErrorDetails"`
	} `json:"ParsedResults"`
	OCRExitCode           flexInt     `json:"OCRExitCode"`
	IsErroredOnProcessing bool        `json:"IsErroredOnProcessing"`
	ErrorMessage          flexMessage `json:"ErrorMessage"`
	ErrorDetails          flexMessage `json:"ErrorDetails"`
}

// parseOCRSpaceResponse maps a reply onto text, "" (no text) or an error
// wrapping common.ErrService.
func parseOCRSpaceResponse(raw []byte, status int) (string, error) {
	if status/100 != 2 {
		detail := strings.TrimSpace(truncate(string(raw), 512))
		var r ocrSpaceResponse
		if json.Unmarshal(raw, &r) == nil && len(r.ErrorMessage) > 0 {
			detail = r.ErrorMessage.String()
		}
		return "", common.NewAppError("OCR_SPACE_STATUS",
			fmt.Sprintf("status %d: %s", status, detail), common.ErrService)
	}
	if err := validateResponse(raw); err != nil {
		return "", common.NewAppError("OCR_SPACE_RESPONSE", "unexpected response", fmt.Errorf("%w: %v", common.ErrService, err))
	}
	var r ocrSpaceResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", common.NewAppError("OCR_SPACE_RESPONSE", "decode response", fmt.Errorf("%w: %v", common.ErrService, err))
	}
	if r.IsErroredOnProcessing {
		msg := r.ErrorMessage.String()
		if msg == "" && len(r.ParsedResults) > 0 {
			msg = r.ParsedResults[0].ErrorMessage.String()
		}
		if msg == "" {
			msg = fmt.Sprintf("processing failed (exit code %d)", r.OCRExitCode)
		}
		return "", common.NewAppError("OCR_SPACE_PROCESSING", msg, common.ErrService)
	}
	if len(r.ParsedResults) == 0 {
		return "", nil
	}
	first := r.ParsedResults[0]
	text := strings.TrimSpace(first.ParsedText)
	if text == "" && first.FileParseExitCode < 0 {
		return "", common.NewAppError("OCR_SPACE_PROCESSING",
			fmt.Sprintf("file parse exit code %d: %s", first.FileParseExitCode, first.ErrorMessage.String()),
			common.ErrService)
	}
	return text, nil
}

// flexMessage accepts a string, a list of strings or null.
type flexMessage []string

func (m *flexMessage) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "" {
		*m = flexMessage{s}
	}
	return nil
}

func (m flexMessage) String() string { return strings.Join(m, "; ") }

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*n = flexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*n = flexInt(i)
	return nil
}
