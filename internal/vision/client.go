package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Extractor reads printed text out of images and scanned documents.
type Extractor struct {
	api   TextractAPI
	cache *Store
	log   *slog.Logger
}

// NewExtractor builds an Extractor. cache may be nil.
func NewExtractor(api TextractAPI, cache *Store, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		api:   api,
		cache: cache,
		log:   log.With("component", "vision"),
	}
}

func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	doc, cacheKey, err := document(req)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && cacheKey != "" {
		if res, err := e.cache.Get(ctx, cacheKey); err != nil {
			e.log.Warn("extraction cache read failed", "error", err)
		} else if res != nil {
			return res, nil
		}
	}

	out, err := e.api.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{Document: doc})
	if err != nil {
		return nil, fmt.Errorf("detect document text: %w", err)
	}

	res := resultFromBlocks(out.Blocks)

	if e.cache != nil && cacheKey != "" {
		if err := e.cache.Put(ctx, cacheKey, res); err != nil {
			e.log.Warn("extraction cache write failed", "error", err)
		}
	}

	e.log.Debug("document extracted", "lines", len(res.Lines), "blocks", len(res.RawBlocks))
	return res, nil
}

// document resolves the request to a Textract document. Inline documents
// also yield a content hash for caching.
func document(req Request) (*types.Document, string, error) {
	if req.DataURL != "" {
		_, data, err := DecodeDataURL(req.DataURL)
		if err != nil {
			return nil, "", err
		}
		sum := sha256.Sum256(data)
		return &types.Document{Bytes: data}, hex.EncodeToString(sum[:]), nil
	}

	if req.S3 != nil && req.S3.Bucket != "" && req.S3.Name != "" {
		return &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(req.S3.Bucket),
				Name:   aws.String(req.S3.Name),
			},
		}, "", nil
	}

	return nil, "", fmt.Errorf("%w: Provide either { dataUrl } or { s3: { Bucket, Name } }", ErrInvalidDocument)
}

func resultFromBlocks(blocks []types.Block) *Result {
	lines := make([]string, 0)
	for _, b := range blocks {
		if b.BlockType == types.BlockTypeLine && aws.ToString(b.Text) != "" {
			lines = append(lines, aws.ToString(b.Text))
		}
	}
	if blocks == nil {
		blocks = []types.Block{}
	}
	return &Result{
		Text:      strings.Join(lines, "\n"),
		Lines:     lines,
		RawBlocks: blocks,
	}
}
