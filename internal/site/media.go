// Package site decorates parsed pages before they are written: deferred
// loading for embedded media and embed targets for video popup links.
package site

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultEmbedBase is the player URL a video id is appended to.
const DefaultEmbedBase = "https://www.youtube-nocookie.com/embed/"

// Decorator applies media attributes to a parsed page.
type Decorator struct {
	embedBase string
}

// NewDecorator creates a Decorator. An empty embedBase uses DefaultEmbedBase.
func NewDecorator(embedBase string) *Decorator {
	if embedBase == "" {
		embedBase = DefaultEmbedBase
	}
	if !strings.HasSuffix(embedBase, "/") {
		embedBase += "/"
	}
	return &Decorator{embedBase: embedBase}
}

// Decorate sets loading="lazy" on images and iframes that do not choose a
// loading mode, and gives every anchor carrying data-video-id a
// data-embed-src with autoplay enabled. It returns the number of elements
// changed.
func (d *Decorator) Decorate(doc *html.Node) int {
	changed := 0
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img, atom.Iframe:
				if _, ok := getAttr(n, "loading"); !ok {
					n.Attr = append(n.Attr, html.Attribute{Key: "loading", Val: "lazy"})
					changed++
				}
			case atom.A:
				if id, ok := getAttr(n, "data-video-id"); ok && strings.TrimSpace(id) != "" {
					if _, has := getAttr(n, "data-embed-src"); !has {
						n.Attr = append(n.Attr, html.Attribute{Key: "data-embed-src", Val: d.EmbedURL(id)})
						changed++
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return changed
}

// EmbedURL is the player URL for a video id.
func (d *Decorator) EmbedURL(videoID string) string {
	return d.embedBase + url.PathEscape(strings.TrimSpace(videoID)) + "?autoplay=1&rel=0"
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
