package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestSelectorChainFallback(t *testing.T) {
	doc := docFrom(t, `<div class="new-layout"><span class="price">£100</span></div>`)

	chain := selectorChain{"div.old-layout", "div.new-layout"}
	if s := chain.Select(doc); s == nil {
		t.Fatal("chain did not fall back to the matching selector")
	}

	none := selectorChain{"div.gone", "div.also-gone"}
	if s := none.Select(doc); s != nil {
		t.Fatal("chain matched nothing but returned a selection")
	}
}

func TestSelectorChainText(t *testing.T) {
	doc := docFrom(t, `<div><span class="empty">  </span><span class="full"> £425,000 </span></div>`)

	chain := selectorChain{"span.empty", "span.full"}
	if got := chain.Text(doc.Selection); got != "£425,000" {
		t.Errorf("Text = %q, want trimmed non-empty fallback", got)
	}
}

func TestSelectorChainAttr(t *testing.T) {
	doc := docFrom(t, `<div><a class="no-href">x</a><a class="link" href="/properties/12345">y</a></div>`)

	chain := selectorChain{"a.no-href", "a.link"}
	if got := chain.Attr(doc.Selection, "href"); got != "/properties/12345" {
		t.Errorf("Attr = %q, want /properties/12345", got)
	}
}
