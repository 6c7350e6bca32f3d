package extract

import (
	"strings"

	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
)

// Images reads the product gallery: every img of the carousel, or of the
// first fallback candidate that yields any. A matched element that is not an
// img itself is searched for img descendants. The first image is the primary.
func Images(scope dom.Scope, table locator.Table) models.ProductImages {
	var imgs []dom.Element
	if carousel, ok := locator.Resolve(scope, table.Gallery); ok {
		imgs = locator.ResolveAll(carousel, table.Image)
	}
	if len(imgs) == 0 {
		imgs = fallbackImages(scope, table)
	}

	out := models.ProductImages{Gallery: make([]models.ImageInfo, 0, len(imgs))}
	for _, img := range imgs {
		info, ok := imageInfo(img)
		if !ok {
			continue
		}
		out.Gallery = append(out.Gallery, info)
	}
	if len(out.Gallery) > 0 {
		primary := out.Gallery[0]
		out.Primary = &primary
	}
	return out
}

func fallbackImages(scope dom.Scope, table locator.Table) []dom.Element {
	for _, loc := range table.GalleryFallback {
		els := locator.ResolveAll(scope, loc)
		if len(els) == 0 {
			continue
		}
		tag, err := els[0].TagName()
		if err != nil {
			continue
		}
		imgs := els
		if !strings.EqualFold(tag, "img") {
			imgs = locator.ResolveAll(els[0], table.Image)
		}
		if len(imgs) > 0 {
			return imgs
		}
	}
	return nil
}

func imageInfo(img dom.Element) (models.ImageInfo, bool) {
	attr := func(name string) string {
		v, _, err := img.Attribute(name)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	src := attr("src")
	if src == "" || strings.HasPrefix(src, "data:") {
		src = attr("data-src")
	}
	if src == "" {
		return models.ImageInfo{}, false
	}
	return models.ImageInfo{Src: src, Alt: attr("alt"), Class: attr("class")}, true
}
