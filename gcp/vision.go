package gcp

import (
	"context"
	"fmt"
	"strings"

	vision "google.golang.org/api/vision/v1"
)

// Extractor runs OCR over an uploaded label image using the Cloud Vision API
// and returns the recognized text.
type Extractor struct {
	svc *vision.Service
}

// NewExtractor creates a Vision-backed text extractor.
func NewExtractor(ctx context.Context) (*Extractor, error) {
	svc, err := vision.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &Extractor{svc: svc}, nil
}

// ExtractText annotates the image at imageURL with TEXT_DETECTION and returns
// the full detected text. An image with no readable text is an error, not an
// empty result, because the analyze stage has nothing to work from.
func (e *Extractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{
				Source: &vision.ImageSource{ImageUri: imageURL},
			},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := e.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("vision returned no annotation response")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return "", fmt.Errorf("vision rejected image: %s", annotation.Error.Message)
	}

	text := ""
	if annotation.FullTextAnnotation != nil {
		text = annotation.FullTextAnnotation.Text
	} else if len(annotation.TextAnnotations) > 0 {
		text = annotation.TextAnnotations[0].Description
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text found in image")
	}
	return text, nil
}
