package impl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Widgets</title>
  <meta name="description" content="hidden">
  <style>body { color: red; }</style>
  <script>console.log("hidden");</script>
</head>
<body>
  <h1>Welcome to Acme</h1>
  <p>See our <a href="/products">products</a> page.</p>
  <a href="https://example.com/contact">Contact us</a>
  <a href="mailto:sales@acme.com">Email</a>
  <area href="/map">
  <link rel="canonical" href="https://acme.com/home">
  <noscript>enable js</noscript>
</body>
</html>`

func TestExtractPageTextStripsNonContent(t *testing.T) {
	doc, err := ParseHTML(samplePage)
	require.NoError(t, err)

	text := ExtractPageText(doc, "https://acme.com/home")
	assert.Contains(t, text, "Welcome to Acme")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "enable js")
	assert.NotContains(t, text, "Acme Widgets") // title lives in head
}

func TestExtractPageTextAnnotatesAnchors(t *testing.T) {
	doc, err := ParseHTML(samplePage)
	require.NoError(t, err)

	text := ExtractPageText(doc, "https://acme.com/home")
	assert.Contains(t, text, "products [https://acme.com/products]")
	assert.Contains(t, text, "Contact us [https://example.com/contact]")
}

func TestExtractPageLinksResolvesAndDedupes(t *testing.T) {
	doc, err := ParseHTML(samplePage)
	require.NoError(t, err)

	links := ExtractPageLinks(doc, "https://acme.com/home", "https://acme.com/home")
	require.NotEmpty(t, links)

	// The page's own URL is pinned first, with a trailing slash.
	assert.Equal(t, "https://acme.com/home/", links[0])
	assert.Contains(t, links, "https://acme.com/products")
	assert.Contains(t, links, "https://acme.com/map")
	assert.Contains(t, links, "https://example.com/contact")

	seen := make(map[string]int)
	for _, l := range links {
		seen[l]++
		assert.Equal(t, 1, seen[l], "duplicate link %s", l)
	}
}

func TestExtractTitle(t *testing.T) {
	doc, err := ParseHTML(samplePage)
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets", ExtractTitle(doc))
}
