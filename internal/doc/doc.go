// Package doc provides the rendered-content model the highlight engine
// anchors against. It wraps an x/net/html node tree and exposes the
// four capabilities the engine needs: flattening text content in
// document order, translating absolute offsets back into concrete
// node positions, wrapping a concrete range with a tagged marker
// element, and detecting whether a position sits inside an existing
// marker.
//
// All offsets are byte offsets into the UTF-8 flattened text.
// Wrapping and unwrapping never change the flattened text, so offsets
// computed before a marker pass remain valid after it.
package doc

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MarkerIDAttr tags a marker element with the highlight id it renders.
	MarkerIDAttr = "data-hl-id"
	// MarkerColorAttr carries the palette value on a marker element.
	MarkerColorAttr = "data-hl-color"
)

// ErrCrossBoundary is returned by Wrap when the requested range spans
// sibling elements in a way that cannot be wrapped by a single marker.
// Callers skip the highlight for this render pass; they do not fail.
var ErrCrossBoundary = errors.New("doc: range crosses an element boundary")

// Document is a live rendering of one logical content unit.
type Document struct {
	container *html.Node
}

// Parse builds a Document from an HTML fragment, as if rendered inside
// a div container.
func Parse(fragment string) (*Document, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return &Document{container: container}, nil
}

// New wraps an existing container node.
func New(container *html.Node) *Document {
	return &Document{container: container}
}

// HTML renders the container's current content.
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	for c := d.container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Position is a concrete location inside the live tree: a byte offset
// within one text node.
type Position struct {
	Node   *html.Node
	Offset int
}

// textNodes returns the container's text nodes in document order.
// script and style subtrees carry no user-visible text and are skipped.
func (d *Document) textNodes() []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.container)
	return out
}

// Flatten concatenates all text content in document order. This is the
// string every stored offset and every anchor search refers to.
func (d *Document) Flatten() string {
	var b strings.Builder
	for _, n := range d.textNodes() {
		b.WriteString(n.Data)
	}
	return b.String()
}

// Length returns the size of the flattened text in bytes.
func (d *Document) Length() int {
	total := 0
	for _, n := range d.textNodes() {
		total += len(n.Data)
	}
	return total
}

// Locate translates an absolute flattened-text offset into a concrete
// position. An offset on a node boundary resolves to the start of the
// following text node; the end-of-content offset resolves to the end
// of the last text node. Returns false when the offset is out of
// bounds or the container holds no text.
func (d *Document) Locate(offset int) (Position, bool) {
	if offset < 0 {
		return Position{}, false
	}
	nodes := d.textNodes()
	consumed := 0
	for _, n := range nodes {
		if offset < consumed+len(n.Data) {
			return Position{Node: n, Offset: offset - consumed}, true
		}
		consumed += len(n.Data)
	}
	if offset == consumed && len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		return Position{Node: last, Offset: len(last.Data)}, true
	}
	return Position{}, false
}

// LocateEnd is Locate biased toward the preceding node: an offset on a
// node boundary resolves to the end of the node before it. Used for
// range ends so a range never claims a node it covers zero bytes of.
func (d *Document) LocateEnd(offset int) (Position, bool) {
	if offset <= 0 {
		return Position{}, false
	}
	pos, ok := d.Locate(offset - 1)
	if !ok {
		return Position{}, false
	}
	return Position{Node: pos.Node, Offset: pos.Offset + 1}, true
}

// OffsetOf translates a concrete position back into an absolute
// flattened-text offset. Returns false when pos does not belong to
// this container.
func (d *Document) OffsetOf(pos Position) (int, bool) {
	consumed := 0
	for _, n := range d.textNodes() {
		if n == pos.Node {
			if pos.Offset < 0 || pos.Offset > len(n.Data) {
				return 0, false
			}
			return consumed + pos.Offset, true
		}
		consumed += len(n.Data)
	}
	return 0, false
}

// TextBetween extracts the flattened text spanned by two concrete
// positions. This is the byte-for-byte verification read used before a
// marker is applied.
func (d *Document) TextBetween(start, end Position) (string, bool) {
	so, ok := d.OffsetOf(start)
	if !ok {
		return "", false
	}
	eo, ok := d.OffsetOf(end)
	if !ok || eo < so {
		return "", false
	}
	flat := d.Flatten()
	return flat[so:eo], true
}

// MarkerAt reports the id of the marker element containing pos, if
// any. A selection starting here is a removal request, not a capture.
func (d *Document) MarkerAt(pos Position) (string, bool) {
	for n := pos.Node; n != nil && n != d.container; n = n.Parent {
		if id, ok := markerID(n); ok {
			return id, true
		}
	}
	return "", false
}

// Markers returns the ids of all marker elements currently present,
// in document order.
func (d *Document) Markers() []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if id, ok := markerID(n); ok {
			out = append(out, id)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.container)
	return out
}

func markerID(n *html.Node) (string, bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Mark {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == MarkerIDAttr {
			return a.Val, true
		}
	}
	return "", false
}
