package ocr

import (
	"context"
)

// Extractor recovers machine-readable text from a document image. "No text
// found" is not an error; it yields an empty string.
type Extractor interface {
	ExtractText(ctx context.Context, img []byte) (string, error)
}
