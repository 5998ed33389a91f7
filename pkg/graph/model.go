package graph

import (
	"fmt"
	"strings"
)

// ImageType selects the size of a picture connection.
type ImageType string

const (
	ImageSquare ImageType = "square"
	ImageSmall  ImageType = "small"
	ImageNormal ImageType = "normal"
	ImageLarge  ImageType = "large"
)

// ParseImageType maps a case-insensitive name onto an ImageType.
func ParseImageType(s string) (ImageType, error) {
	switch t := ImageType(strings.ToLower(strings.TrimSpace(s))); t {
	case ImageSquare, ImageSmall, ImageNormal, ImageLarge:
		return t, nil
	default:
		return "", fmt.Errorf("unknown image type %q", s)
	}
}

// Reference is the minimal shape of most connection elements.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
