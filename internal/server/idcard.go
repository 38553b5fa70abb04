package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
	"github.com/joseph-ayodele/idcard-reader/internal/export"
	"github.com/joseph-ayodele/idcard-reader/internal/repository"
)

// DefaultMaxImageBytes bounds decoded images accepted by Process.
const DefaultMaxImageBytes = 20 << 20

// Processor is the part of core.Processor the service needs.
type Processor interface {
	Process(ctx context.Context, in core.Input) (core.Result, error)
}

type IDCardService struct {
	proc          Processor
	docs          repository.DocumentRepository
	exporter      *export.Service
	maxImageBytes int
	logger        *slog.Logger
}

var _ IDCardServer = (*IDCardService)(nil)

// NewIDCardService wires the service. docs may be nil, in which case the
// document methods report FailedPrecondition.
func NewIDCardService(proc Processor, docs repository.DocumentRepository, logger *slog.Logger) *IDCardService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &IDCardService{proc: proc, docs: docs, maxImageBytes: DefaultMaxImageBytes, logger: logger}
	if docs != nil {
		s.exporter = export.NewService(docs, logger)
	}
	return s
}

func (s *IDCardService) Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	encoded := f["image_base64"].GetStringValue()
	lang := f["language"].GetStringValue()
	mode := f["mode"].GetStringValue()
	source := f["source"].GetStringValue()

	image, decodeErr := base64.StdEncoding.DecodeString(encoded)
	v := common.NewValidator().
		Field("image_base64", encoded, common.Required).
		Field("mode", mode, common.OneOf(string(constants.EngineModeAuto), string(constants.EngineModeLocal), string(constants.EngineModeRemote))).
		Field("source", source, common.MaxLength(1024))
	if decodeErr == nil {
		v.Field("image_base64", image, common.MaxBytes(s.maxImageBytes))
	} else if encoded != "" {
		v.Field("image_base64", encoded, func(name string, _ interface{}) *common.ValidationError {
			return &common.ValidationError{Field: name, Value: "<invalid>", Message: "must be standard base64"}
		})
	}
	if err := v.Error(); err != nil {
		return nil, common.GRPCStatus(err)
	}

	in := core.Input{Image: image, Source: source}
	var err error
	if in.Language, err = constants.ParseLanguage(lang); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if in.Mode, err = constants.ParseEngineMode(mode); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if t := strings.TrimSpace(f["techniques"].GetStringValue()); t != "" {
		if in.Techniques, err = condition.ParseTechniques(t); err != nil {
			return nil, common.GRPCStatus(err)
		}
	}

	res, err := s.proc.Process(ctx, in)
	if err != nil {
		s.logger.Warn("grpc.process.failed", "req_id", res.RequestID, "kind", string(res.Kind), "err", err)
		return nil, common.GRPCStatus(err)
	}
	return toStruct(resultMap(res))
}

func (s *IDCardService) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.docs == nil {
		return nil, errNoStore()
	}
	raw := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "id must be a UUID")
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return toStruct(documentMap(doc))
}

func (s *IDCardService) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.docs == nil {
		return nil, errNoStore()
	}
	from, to, err := dateRange(req)
	if err != nil {
		return nil, err
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	docs, err := s.docs.List(ctx, from, to)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	items := make([]any, 0, len(docs))
	for _, d := range docs {
		items = append(items, documentMap(d))
	}
	return toStruct(map[string]any{"documents": items, "count": len(items)})
}

func (s *IDCardService) ExportDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, errNoStore()
	}
	from, to, err := dateRange(req)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.ExportDocumentsXLSX(ctx, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	// structpb encodes []byte as a base64 string value.
	return toStruct(map[string]any{"xlsx": xlsx, "filename": "documents.xlsx"})
}

func errNoStore() error {
	return status.Error(codes.FailedPrecondition, "document store is not configured")
}

// dateRange parses optional from_date/to_date (YYYY-MM-DD).
func dateRange(req *structpb.Struct) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		s := strings.TrimSpace(req.GetFields()[key].GetStringValue())
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be YYYY-MM-DD", key)
		}
		return &t, nil
	}
	from, err := parse("from_date")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to_date")
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, status.Error(codes.InvalidArgument, "to_date is before from_date")
	}
	return from, to, nil
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func resultMap(r core.Result) map[string]any {
	fields := map[string]any{}
	for f, v := range r.Record.Fields() {
		fields[string(f)] = v
	}
	warnings := make([]any, 0, len(r.Report.Warnings))
	for _, w := range r.Report.Warnings {
		warnings = append(warnings, map[string]any{"field": string(w.Field), "message": w.Message})
	}
	m := map[string]any{
		"request_id":      r.RequestID,
		"source":          r.Source,
		"status":          string(r.Status),
		"engine":          string(r.Engine),
		"fields":          fields,
		"warnings":        warnings,
		"normalized_text": r.NormalizedText,
		"elapsed_ms":      r.Elapsed.Milliseconds(),
	}
	if r.Kind != constants.KindNone {
		m["kind"] = string(r.Kind)
	}
	if r.DocumentID != uuid.Nil {
		m["document_id"] = r.DocumentID.String()
	}
	return m
}

func documentMap(d *entity.Document) map[string]any {
	m := map[string]any{
		"id":            d.ID.String(),
		"request_id":    d.RequestID,
		"document_type": d.DocumentType,
		"source":        d.Source,
		"engine":        string(d.Engine),
		"status":        string(d.Status),
		"created_at":    d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	opt := map[string]*string{
		"id_number":      d.IDNumber,
		"full_name":      d.FullName,
		"date_of_birth":  d.DateOfBirth,
		"place_of_birth": d.PlaceOfBirth,
		"gender":         d.Gender,
		"address":        d.Address,
		"expiry_date":    d.ExpiryDate,
	}
	for k, v := range opt {
		if v != nil {
			m[k] = *v
		}
	}
	warnings := make([]any, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		warnings = append(warnings, w)
	}
	m["warnings"] = warnings
	return m
}
