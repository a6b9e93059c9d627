package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/prelink-app/identity/internal/fault"
)

type VisionExtractor struct {
	svc *vision.Service
}

func NewVisionExtractor(ctx context.Context, apiKey string) (*VisionExtractor, error) {
	svc, err := vision.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &VisionExtractor{svc: svc}, nil
}

func (x *VisionExtractor) ExtractText(ctx context.Context, img []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(img)},
				Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
			},
		},
	}

	res, err := x.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", classifyVisionError(err)
	}

	if len(res.Responses) == 0 {
		return "", fault.Transient("ocr.extract", errors.New("empty annotate response"))
	}

	annotated := res.Responses[0]
	if annotated.Error != nil {
		return "", classifyVisionStatus(annotated.Error)
	}

	if annotated.FullTextAnnotation != nil {
		return annotated.FullTextAnnotation.Text, nil
	}

	if len(annotated.TextAnnotations) > 0 {
		return annotated.TextAnnotations[0].Description, nil
	}

	return "", nil
}

func classifyVisionError(err error) error {
	const op = "ocr.extract"

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return fault.Transient(op, err)
		}
		return fault.Input(op, err)
	}

	return fault.Classify(op, err)
}

// Per-image errors come back as gRPC status codes inside the batch response.
func classifyVisionStatus(status *vision.Status) error {
	const op = "ocr.extract"

	err := fmt.Errorf("vision status %d: %s", status.Code, status.Message)

	switch status.Code {
	case 4, 8, 13, 14: // DEADLINE_EXCEEDED, RESOURCE_EXHAUSTED, INTERNAL, UNAVAILABLE
		return fault.Transient(op, err)
	default:
		return fault.Input(op, err)
	}
}
