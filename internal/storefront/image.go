package storefront

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

// CoverCropSuffix selects the fixed-size crop served by the image CDN.
const CoverCropSuffix = "_bg_crop_1680x655.jpg"

// CoverURL turns a partial image URL ("//images.example/abc") into the
// absolute URL of its crop.
func CoverURL(partial string) string {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return ""
	}
	if !strings.HasPrefix(partial, "http://") && !strings.HasPrefix(partial, "https://") {
		partial = "https:" + partial
	}
	return partial + CoverCropSuffix
}

// DownloadImage downloads the crop of a partial image URL and checks that the
// payload decodes as an image.
func (c *Client) DownloadImage(ctx context.Context, partial string) (*Image, error) {
	imageURL := CoverURL(partial)
	if imageURL == "" {
		return nil, errors.New("image URL is empty")
	}

	resp, err := c.get(ctx, imageURL, "image/*")
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}

	if _, err := imaging.Decode(bytes.NewReader(resp.Body)); err != nil {
		return nil, fmt.Errorf("downloaded file from %s is not a valid image: %w", imageURL, err)
	}

	contentType := resp.ContentType
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(resp.Body)
	}

	return &Image{URL: imageURL, ContentType: contentType, Data: resp.Body}, nil
}
