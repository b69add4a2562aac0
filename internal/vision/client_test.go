package vision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/redis/go-redis/v9"
)

type fakeTextract struct {
	calls  int
	input  *textract.DetectDocumentTextInput
	blocks []types.Block
	err    error
}

func (f *fakeTextract) DetectDocumentText(_ context.Context, params *textract.DetectDocumentTextInput, _ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &textract.DetectDocumentTextOutput{Blocks: f.blocks}, nil
}

func sampleBlocks() []types.Block {
	return []types.Block{
		{BlockType: types.BlockTypePage, Id: aws.String("p1")},
		{BlockType: types.BlockTypeLine, Id: aws.String("l1"), Text: aws.String("Two Sum")},
		{BlockType: types.BlockTypeWord, Id: aws.String("w1"), Text: aws.String("Two")},
		{BlockType: types.BlockTypeLine, Id: aws.String("l2"), Text: aws.String("")},
		{BlockType: types.BlockTypeLine, Id: aws.String("l3"), Text: aws.String("Given an array of integers")},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, 0)
}

func TestExtractor_DataURL(t *testing.T) {
	api := &fakeTextract{blocks: sampleBlocks()}
	ex := NewExtractor(api, nil, testLogger())

	res, err := ex.Extract(context.Background(), Request{DataURL: "data:image/png;base64,aGVsbG8="})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if string(api.input.Document.Bytes) != "hello" {
		t.Errorf("expected decoded bytes, got %q", api.input.Document.Bytes)
	}
	if res.Text != "Two Sum\nGiven an array of integers" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(res.Lines) != 2 {
		t.Errorf("expected 2 lines, got %v", res.Lines)
	}
	if len(res.RawBlocks) != 5 {
		t.Errorf("expected all raw blocks, got %d", len(res.RawBlocks))
	}
}

func TestExtractor_S3(t *testing.T) {
	api := &fakeTextract{}
	ex := NewExtractor(api, nil, testLogger())

	res, err := ex.Extract(context.Background(), Request{S3: &S3Ref{Bucket: "docs", Name: "page.png"}})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	obj := api.input.Document.S3Object
	if obj == nil || aws.ToString(obj.Bucket) != "docs" || aws.ToString(obj.Name) != "page.png" {
		t.Errorf("unexpected s3 object %+v", obj)
	}
	if res.Text != "" || res.Lines == nil || res.RawBlocks == nil {
		t.Errorf("expected empty but non-nil result, got %+v", res)
	}
}

func TestExtractor_InvalidRequests(t *testing.T) {
	api := &fakeTextract{}
	ex := NewExtractor(api, nil, testLogger())

	for _, req := range []Request{
		{},
		{S3: &S3Ref{Bucket: "docs"}},
		{DataURL: "not-a-data-url"},
	} {
		if _, err := ex.Extract(context.Background(), req); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("request %+v: expected ErrInvalidDocument, got %v", req, err)
		}
	}
	if api.calls != 0 {
		t.Errorf("invalid requests should not reach the backend, got %d calls", api.calls)
	}
}

func TestExtractor_BackendError(t *testing.T) {
	api := &fakeTextract{err: errors.New("AccessDeniedException")}
	ex := NewExtractor(api, nil, testLogger())

	_, err := ex.Extract(context.Background(), Request{DataURL: "data:image/png;base64,aGVsbG8="})
	if err == nil || errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestExtractor_CachesInlineDocuments(t *testing.T) {
	api := &fakeTextract{blocks: sampleBlocks()}
	ex := NewExtractor(api, newTestCache(t), testLogger())
	req := Request{DataURL: "data:image/png;base64,aGVsbG8="}

	first, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if api.calls != 1 {
		t.Errorf("expected one backend call, got %d", api.calls)
	}
	if second.Text != first.Text || len(second.RawBlocks) != len(first.RawBlocks) {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
	if second.RawBlocks[1].BlockType != types.BlockTypeLine {
		t.Errorf("expected block type to survive the cache, got %s", second.RawBlocks[1].BlockType)
	}

	if _, err := ex.Extract(context.Background(), Request{S3: &S3Ref{Bucket: "b", Name: "n"}}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := ex.Extract(context.Background(), Request{S3: &S3Ref{Bucket: "b", Name: "n"}}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if api.calls != 3 {
		t.Errorf("s3 documents are not cached, expected 3 calls, got %d", api.calls)
	}
}

func TestStore_Miss(t *testing.T) {
	res, err := newTestCache(t).Get(context.Background(), "deadbeef")
	if err != nil || res != nil {
		t.Errorf("expected clean miss, got %v %v", res, err)
	}
}
