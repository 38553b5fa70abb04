package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
	"github.com/joseph-ayodele/idcard-reader/internal/core/ocr"
	"github.com/joseph-ayodele/idcard-reader/internal/core/orchestrator"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
)

type stubEngine struct {
	name        constants.EngineName
	unavailable error
	text        string
	err         error
}

func (s *stubEngine) Name() constants.EngineName { return s.name }

func (s *stubEngine) Available(context.Context) error { return s.unavailable }

func (s *stubEngine) ExtractRaw(context.Context, *image.Gray, constants.Language) (string, error) {
	return s.text, s.err
}

type memStore struct {
	mu   sync.Mutex
	docs []*entity.Document
	err  error
}

func (m *memStore) Save(_ context.Context, doc *entity.Document) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = uuid.New()
	m.docs = append(m.docs, doc)
	return nil
}

const remoteText = "Y510850 ... Né le 10/06/2002 ..."

func cardPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(230)
			if y > 12 && y < 18 && x > 8 && x < 56 {
				v = 20
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func unavailableLocal() *stubEngine {
	return &stubEngine{name: constants.EngineLocal, unavailable: fmt.Errorf("%w: not installed", common.ErrEngineUnavailable)}
}

func engineOrNil(s *stubEngine) ocr.Engine {
	if s == nil {
		return nil
	}
	return s
}

func newTestProcessor(local, remote *stubEngine, opts ...Option) *Processor {
	orch := orchestrator.New(engineOrNil(local), engineOrNil(remote), nil)
	opts = append([]Option{WithDefaults("", "", []condition.Technique{condition.Grayscale})}, opts...)
	return NewProcessor(nil, orch, nil, opts...)
}

func TestProcess_AutoFallsBackToRemote(t *testing.T) {
	p := newTestProcessor(unavailableLocal(), &stubEngine{name: constants.EngineRemote, text: remoteText})

	res, err := p.Process(context.Background(), Input{Image: cardPNG(t), Mode: constants.EngineModeAuto})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Engine != constants.EngineRemote {
		t.Errorf("engine = %s, want remote", res.Engine)
	}
	if id, _ := res.Record.Value(constants.FieldIDNumber); id != "Y510850" {
		t.Errorf("id_number = %q", id)
	}
	if dob, _ := res.Record.Value(constants.FieldDateOfBirth); dob != "2002-06-10" {
		t.Errorf("date_of_birth = %q", dob)
	}
	if res.Status != constants.DocumentStatusIncomplete {
		t.Errorf("status = %s", res.Status)
	}
	if len(res.Report.Warnings) != 1 || res.Report.Warnings[0].Field != constants.FieldFullName {
		t.Errorf("warnings = %v", res.Report.Warnings)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(res.Attempts))
	}
	if res.RequestID == "" {
		t.Error("request id not assigned")
	}
}

func TestProcess_UnreadableImage(t *testing.T) {
	p := newTestProcessor(&stubEngine{name: constants.EngineLocal, text: remoteText}, nil)

	res, err := p.Process(context.Background(), Input{Image: []byte("not an image"), Mode: constants.EngineModeLocal})
	if !errors.Is(err, common.ErrImage) {
		t.Fatalf("err = %v, want ErrImage", err)
	}
	if res.Kind != constants.KindImage || res.Status != constants.DocumentStatusFailed {
		t.Errorf("kind/status = %s/%s", res.Kind, res.Status)
	}
}

func TestProcess_EmptyTextIsNotAnError(t *testing.T) {
	p := newTestProcessor(&stubEngine{name: constants.EngineLocal, text: "  "}, nil)

	res, err := p.Process(context.Background(), Input{Image: cardPNG(t), Mode: constants.EngineModeLocal})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != constants.DocumentStatusEmpty || res.Kind != constants.KindExtractionEmpty {
		t.Errorf("status/kind = %s/%s", res.Status, res.Kind)
	}
	if len(res.Report.Warnings) != len(constants.MandatoryFields) {
		t.Errorf("warnings = %v", res.Report.Warnings)
	}
}

func TestProcess_NoEngineAvailable(t *testing.T) {
	p := newTestProcessor(unavailableLocal(), nil)

	res, err := p.Process(context.Background(), Input{Image: cardPNG(t)})
	if !errors.Is(err, common.ErrNoEngineAvailable) {
		t.Fatalf("err = %v, want ErrNoEngineAvailable", err)
	}
	if res.Kind != constants.KindNoEngineAvailable {
		t.Errorf("kind = %s", res.Kind)
	}
}

func TestProcess_Store(t *testing.T) {
	store := &memStore{}
	p := newTestProcessor(&stubEngine{name: constants.EngineLocal, text: remoteText}, nil, WithStore(store))

	res, err := p.Process(context.Background(), Input{Image: cardPNG(t), Mode: constants.EngineModeLocal, Source: "a.png"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(store.docs) != 1 {
		t.Fatalf("saved %d docs", len(store.docs))
	}
	doc := store.docs[0]
	if doc.IDNumber == nil || *doc.IDNumber != "Y510850" || doc.Source != "a.png" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.FullName != nil || len(doc.Warnings) != 1 {
		t.Errorf("full_name/warnings = %v/%v", doc.FullName, doc.Warnings)
	}
	if res.DocumentID != doc.ID {
		t.Errorf("document id not propagated")
	}

	store.err = fmt.Errorf("%w: disk full", common.ErrDatabase)
	res, err = p.Process(context.Background(), Input{Image: cardPNG(t), Mode: constants.EngineModeLocal})
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("store error not surfaced: %v", err)
	}
	if res.Kind != constants.KindDatabase || res.Status != constants.DocumentStatusFailed {
		t.Errorf("kind/status = %s/%s", res.Kind, res.Status)
	}
}

func TestProcessBatch_IsolatesFailures(t *testing.T) {
	p := newTestProcessor(unavailableLocal(), &stubEngine{name: constants.EngineRemote, text: remoteText}, WithWorkers(2))

	img := cardPNG(t)
	out, err := p.ProcessBatch(context.Background(), []BatchInput{
		{ID: "a", Input: Input{Image: img}},
		{ID: "broken", Input: Input{Image: []byte{0x00, 0x01}}},
		{ID: "c", Input: Input{Image: img}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d results, want 3", len(out))
	}
	for _, id := range []string{"a", "c"} {
		r := out[id]
		if r.Err != nil {
			t.Errorf("%s: %v", id, r.Err)
		}
		if v, _ := r.Record.Value(constants.FieldIDNumber); v != "Y510850" {
			t.Errorf("%s: id_number = %q", id, v)
		}
		if r.Source != id {
			t.Errorf("%s: source = %q", id, r.Source)
		}
	}
	if b := out["broken"]; b.Kind != constants.KindImage {
		t.Errorf("broken: kind = %s", b.Kind)
	}
	if out["a"].RequestID == out["c"].RequestID {
		t.Error("batch items share a request id")
	}
}

func TestProcessBatch_DuplicateIDs(t *testing.T) {
	p := newTestProcessor(&stubEngine{name: constants.EngineLocal, text: remoteText}, nil)
	_, err := p.ProcessBatch(context.Background(), []BatchInput{{ID: "x"}, {ID: "x"}})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
