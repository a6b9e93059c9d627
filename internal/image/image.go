package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prelink-app/identity/internal/fault"
)

// The mobile client submits each image either as an inline base64 payload or
// as a URL pointing at its upload bucket.
type Ref struct {
	URL    string
	Base64 string
}

func (ref Ref) IsZero() bool {
	return ref.URL == "" && ref.Base64 == ""
}

const maxImageSize = 10_485_760

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Resolve turns a Ref into raw image bytes. Download failures are transient
// faults; a malformed inline payload is an input fault.
func (f *Fetcher) Resolve(ctx context.Context, ref Ref) ([]byte, error) {
	if ref.Base64 != "" {
		return decodeInline(ref.Base64)
	}

	if ref.URL == "" {
		return nil, fault.Input("image.resolve", errors.New("empty image reference"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fault.Input("image.resolve", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fault.Transient("image.download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.Transient("image.download", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fault.Transient("image.download", err)
	}

	if len(data) > maxImageSize {
		return nil, fault.Input("image.download", errors.New("image exceeds maximum size"))
	}

	return data, nil
}

func decodeInline(payload string) ([]byte, error) {
	// Strip a data URI prefix if the client sent one.
	if i := strings.Index(payload, ","); i != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fault.Input("image.decode", err)
	}

	if len(data) == 0 {
		return nil, fault.Input("image.decode", errors.New("empty image payload"))
	}

	return data, nil
}
