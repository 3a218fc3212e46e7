package doc

import (
	"errors"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sakif/reader-highlights/internal/model"
)

var errBadRange = errors.New("doc: invalid range")

// splitText splits a text node at off and returns the node whose data
// begins at off: n itself when off is 0, a newly inserted sibling for
// an interior split, nil when off is at or past the end of n.
func splitText(n *html.Node, off int) *html.Node {
	if off <= 0 {
		return n
	}
	if off >= len(n.Data) {
		return nil
	}
	rest := &html.Node{Type: html.TextNode, Data: n.Data[off:]}
	n.Data = n.Data[:off]
	n.Parent.InsertBefore(rest, n.NextSibling)
	return rest
}

// Wrap surrounds the range [start, end) with a marker element tagged
// with the highlight id and color. Text nodes at the boundaries are
// split so the marker covers exactly the requested bytes.
//
// The covered text nodes must all live under one parent; a range that
// partially selects an element (its text nodes straddle the element's
// edge) returns ErrCrossBoundary and leaves the tree untouched.
func (d *Document) Wrap(start, end Position, id string, color model.Color) error {
	if start.Node == nil || end.Node == nil || end.Offset <= 0 {
		return errBadRange
	}

	var first, last *html.Node
	if start.Node == end.Node {
		if start.Offset >= end.Offset || end.Offset > len(start.Node.Data) {
			return errBadRange
		}
		// Boundary check before any split: a single text node always
		// has a single parent, so this wrap cannot cross a boundary.
		splitText(start.Node, end.Offset)
		first = splitText(start.Node, start.Offset)
		last = first
	} else {
		// Check parentage before mutating the tree so a rejected wrap
		// leaves no stray splits behind.
		covered, err := d.coveredNodes(start, end)
		if err != nil {
			return err
		}
		parent := covered[0].Parent
		for _, n := range covered {
			if n.Parent != parent {
				return ErrCrossBoundary
			}
		}

		first = splitText(start.Node, start.Offset)
		if first == nil {
			return errBadRange
		}
		splitText(end.Node, end.Offset)
		last = end.Node
	}

	mark := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr: []html.Attribute{
			{Key: MarkerIDAttr, Val: id},
			{Key: MarkerColorAttr, Val: string(color)},
		},
	}
	parent := first.Parent
	parent.InsertBefore(mark, first)
	for n := first; n != nil; {
		next := n.NextSibling
		parent.RemoveChild(n)
		mark.AppendChild(n)
		if n == last {
			break
		}
		n = next
	}
	return nil
}

// coveredNodes returns the text nodes the range touches, in document
// order. start and end must belong to different nodes.
func (d *Document) coveredNodes(start, end Position) ([]*html.Node, error) {
	nodes := d.textNodes()
	si, ei := -1, -1
	for i, n := range nodes {
		if n == start.Node {
			si = i
		}
		if n == end.Node {
			ei = i
		}
	}
	if si < 0 || ei < 0 || si >= ei {
		return nil, errBadRange
	}
	if start.Offset > len(start.Node.Data) || end.Offset > len(end.Node.Data) {
		return nil, errBadRange
	}
	return nodes[si : ei+1], nil
}

// Unwrap removes the marker carrying the given highlight id, splicing
// its children back in place and merging any now-adjacent text nodes.
// Reports whether a marker was found.
func (d *Document) Unwrap(id string) bool {
	mark := d.findMarker(d.container, id)
	if mark == nil {
		return false
	}
	parent := mark.Parent
	for c := mark.FirstChild; c != nil; {
		next := c.NextSibling
		mark.RemoveChild(c)
		parent.InsertBefore(c, mark)
		c = next
	}
	parent.RemoveChild(mark)
	mergeAdjacentText(parent)
	return true
}

func (d *Document) findMarker(n *html.Node, id string) *html.Node {
	if got, ok := markerID(n); ok && got == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := d.findMarker(c, id); found != nil {
			return found
		}
	}
	return nil
}

// mergeAdjacentText joins consecutive text-node children of parent so
// repeated wrap/unwrap cycles do not fragment the tree.
func mergeAdjacentText(parent *html.Node) {
	c := parent.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			parent.RemoveChild(next)
			continue // retry same node against its new neighbour
		}
		c = next
	}
}
