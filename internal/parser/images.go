package parser

import (
	"net/url"
	"strings"
)

var imageSizeSuffixes = []string{"_small", "_medium", "_thumbnail"}

// NormalizeImages cleans gallery image sources into distinct absolute full-size URLs,
// keeping their original order.
func NormalizeImages(sources []string, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	images := make([]string, 0, len(sources))

	for _, src := range sources {
		clean := cleanImageSource(src)
		if clean == "" || strings.Contains(strings.ToLower(clean), "placeholder") {
			continue
		}

		clean = resolveURL(base, clean)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		images = append(images, clean)
	}

	return images
}

func cleanImageSource(src string) string {
	src = strings.TrimSpace(src)
	if i := strings.Index(src, "?"); i >= 0 {
		src = src[:i]
	}
	src = strings.TrimRight(src, ",")
	for _, suffix := range imageSizeSuffixes {
		src = strings.ReplaceAll(src, suffix, "")
	}
	return strings.TrimSpace(src)
}

func resolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
