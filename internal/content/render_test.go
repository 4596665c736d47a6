package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrderedListPreservesItemOrder(t *testing.T) {
	nodes := Render([]Block{ListBlock{Style: ListOrdered, Items: []string{"a", "b"}}})

	require.Len(t, nodes, 1)
	assert.Equal(t, KindList, nodes[0].Kind)
	assert.Equal(t, "<ol><li>a</li><li>b</li></ol>", nodes[0].HTML)
}

func TestRenderUnorderedListMarkerOnly(t *testing.T) {
	nodes := Render([]Block{ListBlock{Style: ListUnordered, Items: []string{"a", "b"}}})

	require.Len(t, nodes, 1)
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", nodes[0].HTML)
}

func TestRenderEmptyListItems(t *testing.T) {
	nodes := Render([]Block{ListBlock{Style: ListOrdered}})

	require.Len(t, nodes, 1)
	assert.Equal(t, "<ol></ol>", nodes[0].HTML)
}

func TestRenderUnknownFallback(t *testing.T) {
	nodes := Render([]Block{UnknownBlock{Type: "mystery"}})

	require.Len(t, nodes, 1)
	assert.Equal(t, KindUnknown, nodes[0].Kind)
	assert.Equal(t, "<p>[Unsupported block type: mystery]</p>", nodes[0].HTML)
}

func TestRenderQuoteWithoutCaption(t *testing.T) {
	nodes := Render([]Block{QuoteBlock{Text: "words"}})

	require.Len(t, nodes, 1)
	assert.Equal(t, "<blockquote><p>words</p></blockquote>", nodes[0].HTML)
}

func TestRenderImageWithCaption(t *testing.T) {
	nodes := Render([]Block{ImageBlock{URL: "https://x/y.png", Caption: "cap"}})

	require.Len(t, nodes, 1)
	assert.Equal(t, `<figure><img src="https://x/y.png" alt="cap"><figcaption>cap</figcaption></figure>`, nodes[0].HTML)
}

func TestRenderImageEscapesAttributes(t *testing.T) {
	nodes := Render([]Block{ImageBlock{URL: `x" autofocus onfocus=alert(1) y="`, Caption: `c"d`}})

	require.Len(t, nodes, 1)
	// A quote in the URL or caption must not terminate the attribute.
	assert.Equal(t, `<figure><img src="x&#34; autofocus onfocus=alert(1) y=&#34;" alt="c&#34;d"><figcaption>c&#34;d</figcaption></figure>`, nodes[0].HTML)
}

func TestRenderEscapesText(t *testing.T) {
	nodes := Render([]Block{
		HeaderBlock{Level: 1, Text: "<script>alert(1)</script>"},
		ParagraphBlock{Text: "a & b"},
	})

	require.Len(t, nodes, 2)
	assert.Equal(t, "<h1>&lt;script&gt;alert(1)&lt;/script&gt;</h1>", nodes[0].HTML)
	assert.Equal(t, "<p>a &amp; b</p>", nodes[1].HTML)
}

func TestRenderHeaderLevels(t *testing.T) {
	nodes := Render([]Block{
		HeaderBlock{Level: 2, Text: "x"},
		HeaderBlock{Level: 7, Text: "x"},
	})

	require.Len(t, nodes, 2)
	assert.Equal(t, "<h2>x</h2>", nodes[0].HTML)
	assert.Equal(t, "<h4>x</h4>", nodes[1].HTML)
}

func TestRenderPreservesBlockOrder(t *testing.T) {
	nodes := Render([]Block{
		HeaderBlock{Level: 1, Text: "title"},
		ParagraphBlock{Text: "body"},
		QuoteBlock{Text: "quote"},
	})

	require.Len(t, nodes, 3)
	assert.Equal(t, KindHeader, nodes[0].Kind)
	assert.Equal(t, KindParagraph, nodes[1].Kind)
	assert.Equal(t, KindQuote, nodes[2].Kind)
}
