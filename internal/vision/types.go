package vision

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

var ErrInvalidDocument = errors.New("invalid document")

type S3Ref struct {
	Bucket string `json:"Bucket"`
	Name   string `json:"Name"`
}

// Request names the document to read: an inline data URL or an S3 object.
type Request struct {
	DataURL string `json:"dataUrl,omitempty"`
	S3      *S3Ref `json:"s3,omitempty"`
}

type Result struct {
	Text      string        `json:"text"`
	Lines     []string      `json:"lines"`
	RawBlocks []types.Block `json:"rawBlocks"`
}
