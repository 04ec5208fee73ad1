package site

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func decorateString(t *testing.T, d *Decorator, page string) string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d.Decorate(doc)
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestDecorate_LazyMedia(t *testing.T) {
	page := `<html><body>
<img src="/a.png">
<img src="/b.png" loading="eager">
<iframe src="/map"></iframe>
<video src="/v.mp4"></video>
</body></html>`

	out := decorateString(t, NewDecorator(""), page)
	for _, want := range []string{
		`<img src="/a.png" loading="lazy"/>`,
		`<img src="/b.png" loading="eager"/>`,
		`<iframe src="/map" loading="lazy"></iframe>`,
		`<video src="/v.mp4"></video>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestDecorate_VideoPopupLinks(t *testing.T) {
	page := `<p><a href="#" class="video-popup" data-video-id="dQw4w9WgXcQ">Watch</a>
<a href="#" data-video-id="  ">Blank</a>
<a href="#" data-video-id="x" data-embed-src="/custom">Custom</a>
<a href="/plain">Plain</a></p>`

	out := decorateString(t, NewDecorator("https://player.example.com/embed"), page)
	if !strings.Contains(out, `data-embed-src="https://player.example.com/embed/dQw4w9WgXcQ?autoplay=1&amp;rel=0"`) {
		t.Errorf("embed src missing:\n%s", out)
	}
	if strings.Count(out, "data-embed-src") != 2 {
		t.Errorf("only the first link should gain an embed src:\n%s", out)
	}
	if !strings.Contains(out, `data-embed-src="/custom"`) {
		t.Errorf("existing embed src overwritten:\n%s", out)
	}
}

func TestDecorate_CountsChanges(t *testing.T) {
	d := NewDecorator("")
	doc, err := html.Parse(strings.NewReader(`<img src="x"><img src="y" loading="auto"><a data-video-id="v">v</a>`))
	if err != nil {
		t.Fatal(err)
	}
	if n := d.Decorate(doc); n != 2 {
		t.Errorf("Decorate changed %d elements, want 2", n)
	}
	if n := d.Decorate(doc); n != 0 {
		t.Errorf("second pass changed %d elements, want 0", n)
	}
	if got := d.EmbedURL("a b"); got != DefaultEmbedBase+"a%20b?autoplay=1&rel=0" {
		t.Errorf("EmbedURL = %q", got)
	}
}
