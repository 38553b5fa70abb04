package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/core/extract"
	"github.com/joseph-ayodele/idcard-reader/internal/core/normalize"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
	"github.com/joseph-ayodele/idcard-reader/internal/repository"
)

// fakeProcessor extracts from a fixed text and saves like core.Processor
// does with a store.
type fakeProcessor struct {
	text string
	err  error
	docs repository.DocumentRepository
	last core.Input
}

func (f *fakeProcessor) Process(ctx context.Context, in core.Input) (core.Result, error) {
	f.last = in
	if f.err != nil {
		return core.Result{Kind: common.KindOf(f.err), Err: f.err}, f.err
	}
	norm := normalize.Normalize(f.text)
	rec, rep := extract.Extract(norm)
	res := core.Result{
		RequestID:      common.RequestIDFromContext(ctx),
		Source:         in.Source,
		Engine:         constants.EngineLocal,
		Status:         constants.DocumentStatusIncomplete,
		NormalizedText: norm,
		Record:         rec,
		Report:         rep,
	}
	if f.docs != nil {
		id, _ := rec.Value(constants.FieldIDNumber)
		doc := &entity.Document{RequestID: res.RequestID, Source: in.Source, Status: res.Status, IDNumber: &id}
		if err := f.docs.Save(ctx, doc); err != nil {
			return res, err
		}
		res.DocumentID = doc.ID
	}
	return res, nil
}

func startServer(t *testing.T, proc Processor, docs repository.DocumentRepository) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogging(nil)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	RegisterIDCardServer(s, NewIDCardService(proc, docs, nil))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health = %v, %v", resp.GetStatus(), err)
	}
	return NewClient(conn)
}

func openDocs(t *testing.T) repository.DocumentRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{
		Driver: repository.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "docs.db"),
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(db.Close)
	return repository.NewDocumentRepository(db, nil)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestProcess(t *testing.T) {
	proc := &fakeProcessor{text: "CIN Y510850 Né le 10/06/2002"}
	c := startServer(t, proc, nil)

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-42")
	var header metadata.MD
	out, err := c.Process(ctx, mustStruct(t, map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("image")),
		"language":     "fr",
		"mode":         "remote",
		"techniques":   "clahe,adaptive_threshold",
		"source":       "upload.png",
	}), grpc.Header(&header))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	fields := out.GetFields()["fields"].GetStructValue().GetFields()
	if got := fields["id_number"].GetStringValue(); got != "Y510850" {
		t.Errorf("id_number = %q", got)
	}
	if got := fields["date_of_birth"].GetStringValue(); got != "2002-06-10" {
		t.Errorf("date_of_birth = %q", got)
	}
	if got := out.GetFields()["request_id"].GetStringValue(); got != "req-42" {
		t.Errorf("request_id = %q", got)
	}
	if ids := header.Get(RequestIDHeader); len(ids) != 1 || ids[0] != "req-42" {
		t.Errorf("response header = %v", ids)
	}
	if n := len(out.GetFields()["warnings"].GetListValue().GetValues()); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
	if string(proc.last.Image) != "image" || proc.last.Language != constants.LanguageFrench || proc.last.Mode != constants.EngineModeRemote {
		t.Errorf("processor input = %+v", proc.last)
	}
	if len(proc.last.Techniques) != 2 {
		t.Errorf("techniques = %v", proc.last.Techniques)
	}
}

func TestProcess_InvalidArguments(t *testing.T) {
	c := startServer(t, &fakeProcessor{}, nil)
	img := base64.StdEncoding.EncodeToString([]byte("x"))

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"missing image", map[string]any{}},
		{"bad base64", map[string]any{"image_base64": "***"}},
		{"bad mode", map[string]any{"image_base64": img, "mode": "cloud"}},
		{"bad language", map[string]any{"image_base64": img, "language": "klingon"}},
		{"deskew before threshold", map[string]any{"image_base64": img, "techniques": "deskew,adaptive_threshold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Process(context.Background(), mustStruct(t, tt.req))
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %v (%v), want InvalidArgument", status.Code(err), err)
			}
		})
	}
}

func TestProcess_PipelineErrors(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: both failed", common.ErrNoEngineAvailable), codes.Unavailable},
		{fmt.Errorf("%w: truncated", common.ErrImage), codes.InvalidArgument},
		{fmt.Errorf("%w: no key", common.ErrConfig), codes.FailedPrecondition},
	}
	for _, tt := range tests {
		c := startServer(t, &fakeProcessor{err: tt.err}, nil)
		_, err := c.Process(context.Background(), mustStruct(t, map[string]any{
			"image_base64": base64.StdEncoding.EncodeToString([]byte("x")),
		}))
		if status.Code(err) != tt.want {
			t.Errorf("%v: code = %v, want %v", tt.err, status.Code(err), tt.want)
		}
	}
}

func TestDocuments(t *testing.T) {
	docs := openDocs(t)
	c := startServer(t, &fakeProcessor{text: "CIN Y510850", docs: docs}, docs)
	ctx := context.Background()

	out, err := c.Process(ctx, mustStruct(t, map[string]any{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("x")),
		"source":       "a.png",
	}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	id := out.GetFields()["document_id"].GetStringValue()
	if id == "" {
		t.Fatal("no document_id")
	}

	got, err := c.GetDocument(ctx, mustStruct(t, map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if v := got.GetFields()["id_number"].GetStringValue(); v != "Y510850" {
		t.Errorf("id_number = %q", v)
	}

	_, err = c.GetDocument(ctx, mustStruct(t, map[string]any{"id": "00000000-0000-0000-0000-000000000001"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("missing document code = %v", status.Code(err))
	}
	_, err = c.GetDocument(ctx, mustStruct(t, map[string]any{"id": "nope"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad id code = %v", status.Code(err))
	}

	list, err := c.ListDocuments(ctx, mustStruct(t, map[string]any{}))
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if n := len(list.GetFields()["documents"].GetListValue().GetValues()); n != 1 {
		t.Errorf("listed %d documents", n)
	}
	_, err = c.ListDocuments(ctx, mustStruct(t, map[string]any{"from_date": "2024-02-01", "to_date": "2024-01-01"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("reversed range code = %v", status.Code(err))
	}

	exp, err := c.ExportDocuments(ctx, mustStruct(t, map[string]any{}))
	if err != nil {
		t.Fatalf("ExportDocuments: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(exp.GetFields()["xlsx"].GetStringValue())
	if err != nil {
		t.Fatalf("xlsx base64: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, _ := f.GetRows("Documents")
	if len(rows) != 2 {
		t.Errorf("xlsx rows = %d, want 2", len(rows))
	}
}

func TestDocuments_NoStore(t *testing.T) {
	c := startServer(t, &fakeProcessor{}, nil)
	_, err := c.ListDocuments(context.Background(), mustStruct(t, map[string]any{}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %v", status.Code(err))
	}
}
