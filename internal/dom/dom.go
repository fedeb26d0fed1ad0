// Package dom provides small helpers for building and mutating an HTML
// node tree. The tree from golang.org/x/net/html stands in for the
// browser document the dashboard renders into.
package dom

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attrs maps attribute names to values.
type Attrs map[string]string

// Element builds one unattached element node. Attributes are applied in
// sorted key order. Each child is appended in order: strings become text
// nodes, *html.Node values are appended as they are.
//
// Element panics if a child is of any other type or if a node child is
// already attached somewhere else.
func Element(tag string, attrs Attrs, children ...any) *html.Node {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		tag = "h1"
	}

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		SetAttr(node, k, attrs[k])
	}

	for _, child := range children {
		switch c := child.(type) {
		case string:
			node.AppendChild(TextNode(c))
		case *html.Node:
			node.AppendChild(c)
		default:
			panic(fmt.Sprintf("dom: unsupported child type %T", child))
		}
	}

	return node
}

// TextNode returns an unattached text node.
func TextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// RemoveChildren detaches every child of n. n has no children on return.
func RemoveChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// Remove detaches n from its parent. It is a no-op for a detached node.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Children returns the direct children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// Attr returns the value of an attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content of n and its descendants.
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Text(c))
	}
	return b.String()
}

// FindByID returns the first element in document order whose id matches.
func FindByID(root *html.Node, id string) *html.Node {
	return find(root, func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	})
}

// FirstByTag returns the first element in document order with the given
// tag name, compared case-insensitively.
func FirstByTag(root *html.Node, tag string) *html.Node {
	tag = strings.ToLower(tag)
	return find(root, func(n *html.Node) bool {
		return n.Data == tag
	})
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Render writes n as HTML.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}
