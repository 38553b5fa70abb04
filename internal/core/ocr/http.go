package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

const maxResponseBytes = 8 << 20

// multipartFile is the file part of a multipart request.
type multipartFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// sendMultipart POSTs form fields and one file and returns the raw response
// body and status. Transport errors are returned unwrapped; the caller
// classifies them.
func sendMultipart(ctx context.Context, client *http.Client, url string, fields map[string]string, file multipartFile, logger *slog.Logger) ([]byte, int, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, 0, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := mw.CreatePart(filePartHeader(file))
	if err != nil {
		return nil, 0, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.data); err != nil {
		return nil, 0, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, 0, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		logger.Error("ocr.remote.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logger.Info("ocr.remote.request",
		"req_id", reqID,
		"url", url,
		"content_length", body.Len(),
		"upload_bytes", len(file.data),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("ocr.remote.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("ocr.remote.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Error("ocr.remote.read_error", "req_id", reqID, "error", err)
		return nil, resp.StatusCode, err
	}

	logger.Info("ocr.remote.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, resp.StatusCode, nil
}

func filePartHeader(f multipartFile) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename)},
		"Content-Type":        {f.contentType},
	}
}
