package dom

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestElementWithText(t *testing.T) {
	td := Element("td", Attrs{}, "abc")

	assert.Equal(t, html.ElementNode, td.Type)
	assert.Equal(t, atom.Td, td.DataAtom)
	assert.Equal(t, "td", td.Data)

	children := Children(td)
	require.Len(t, children, 1)
	assert.Equal(t, html.TextNode, children[0].Type)
	assert.Equal(t, "abc", children[0].Data)
	assert.Nil(t, td.Parent)
}

func TestElementWithAttributesAndNodes(t *testing.T) {
	first := Element("td", nil, "k")
	second := Element("td", nil, "v")
	tr := Element("tr", Attrs{"class": "x"}, first, second)

	assert.Equal(t, atom.Tr, tr.DataAtom)
	v, ok := Attr(tr, "class")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	children := Children(tr)
	require.Len(t, children, 2)
	assert.Same(t, first, children[0])
	assert.Same(t, second, children[1])
}

func TestElementNormalizesTag(t *testing.T) {
	assert.Equal(t, "tr", Element("TR", nil).Data)
	assert.Equal(t, "h1", Element("", nil).Data)
}

func TestElementSortsAttributes(t *testing.T) {
	n := Element("div", Attrs{"id": "a", "class": "b", "data-x": "c"})

	keys := make([]string, len(n.Attr))
	for i, a := range n.Attr {
		keys[i] = a.Key
	}
	assert.Equal(t, []string{"class", "data-x", "id"}, keys)
}

func TestElementPanicsOnBadChild(t *testing.T) {
	assert.Panics(t, func() { Element("td", nil, 42) })

	parent := Element("tr", nil)
	child := Element("td", nil)
	parent.AppendChild(child)
	assert.Panics(t, func() { Element("tr", nil, child) })
}

func TestRemoveChildren(t *testing.T) {
	table := Element("table", nil,
		Element("tr", nil),
		Element("tr", nil),
		"loose text",
	)
	require.Len(t, Children(table), 3)

	RemoveChildren(table)
	assert.Nil(t, table.FirstChild)
	assert.Nil(t, table.LastChild)

	RemoveChildren(table)
	assert.Empty(t, Children(table))
}

func TestRemove(t *testing.T) {
	child := Element("td", nil)
	parent := Element("tr", nil, child)

	Remove(child)
	assert.Nil(t, child.Parent)
	assert.Empty(t, Children(parent))

	assert.NotPanics(t, func() { Remove(child) })
}

func TestPageLookups(t *testing.T) {
	page := `<html><body>
<button id="start">Start</button>
<button id="stop">Stop</button>
<table class="first"></table>
<TABLE class="second"></TABLE>
</body></html>`

	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	start := FindByID(doc, "start")
	require.NotNil(t, start)
	assert.Equal(t, "Start", Text(start))

	assert.Nil(t, FindByID(doc, "missing"))

	table := FirstByTag(doc, "TABLE")
	require.NotNil(t, table)
	class, _ := Attr(table, "class")
	assert.Equal(t, "first", class)
}

func TestRenderRow(t *testing.T) {
	row := Element("tr", nil, Element("td", nil, "cpu"), Element("td", Attrs{"class": "value"}, "12.35"))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, row))
	assert.Equal(t, `<tr><td>cpu</td><td class="value">12.35</td></tr>`, buf.String())
}
