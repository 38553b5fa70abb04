package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
	"github.com/joseph-ayodele/idcard-reader/internal/core/condition"
)

type fixedEngine struct{ text string }

func (fixedEngine) Name() constants.EngineName { return constants.EngineLocal }

func (fixedEngine) Available(context.Context) error { return nil }

func (f fixedEngine) ExtractRaw(context.Context, *image.Gray, constants.Language) (string, error) {
	return f.text, nil
}

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "idcard.db")
	cfg.Remote.APIKey = ""
	return cfg
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewWithStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil,
		WithStore(),
		WithLocalEngine(fixedEngine{text: "Y510850 Né le 10/06/2002"}),
		WithTechniques([]condition.Technique{condition.Grayscale}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Remote != nil {
		t.Fatal("remote engine built without an API key")
	}
	res, err := a.Processor.Process(ctx, core.Input{Image: pngBytes(t), Source: "card.png"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if id, _ := res.Record.Value(constants.FieldIDNumber); id != "Y510850" {
		t.Errorf("id = %q", id)
	}
	if res.DocumentID == uuid.Nil {
		t.Fatal("document was not saved")
	}
	docs, err := a.Documents.List(ctx, nil, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "card.png" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestNewWithoutStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil, WithLocalEngine(fixedEngine{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if a.DB != nil || a.Documents != nil {
		t.Fatal("store opened without WithStore")
	}
}

func TestNewRemoteModeNeedsKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.Mode = string(constants.EngineModeRemote)
	_, err := New(context.Background(), cfg, nil, WithLocalEngine(fixedEngine{}))
	if !errors.Is(err, common.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
