// Package xmltree turns legacy report exports into an attribute-free element
// tree with uppercased tag names. Typed extraction runs over the tree with
// explicit alias lists, so field renames between exporter versions only need
// a new alias.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNoRootElement = errors.New("xml document has no root element")

type Node struct {
	Tag   string
	Text  string
	Nodes []*Node

	fields map[string][]string
}

// Parse builds the tree for content, which must already be UTF-8 (see
// parsers.DecodeLegacy). The declared encoding is therefore ignored. The
// decoder is non-strict so unknown entities and unquoted attributes in old
// exports do not abort the parse.
func Parse(content string) (*Node, error) {
	content = strings.TrimPrefix(content, "\ufeff")

	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		root  *Node
		stack []*Node
		texts []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml decode: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: strings.ToUpper(t.Name.Local)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Nodes = append(parent.Nodes, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		}
	}
	if root == nil {
		return nil, ErrNoRootElement
	}
	return root, nil
}

func matches(tag string, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if strings.EqualFold(tag, t) {
			return true
		}
	}
	return false
}

// Children returns the direct children whose tag is one of tags (all when empty).
func (n *Node) Children(tags ...string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Nodes {
		if matches(c.Tag, tags) {
			out = append(out, c)
		}
	}
	return out
}

// All returns matching descendants in document order, excluding n itself.
// Matches are not descended into, so nested repeats of the same tag are
// reported once, through their outermost occurrence.
func (n *Node) All(tags ...string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Nodes {
			if matches(c.Tag, tags) {
				out = append(out, c)
				if len(tags) > 0 {
					continue
				}
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// First returns the first descendant matching tags, or nil.
func (n *Node) First(tags ...string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if matches(c.Tag, tags) {
			return c
		}
		if found := c.First(tags...); found != nil {
			return found
		}
	}
	return nil
}

// Is reports whether n carries one of tags.
func (n *Node) Is(tags ...string) bool {
	return n != nil && matches(n.Tag, tags)
}

// Value returns the first non-empty direct child text, trying aliases in order.
func (n *Node) Value(aliases ...string) string {
	if n == nil {
		return ""
	}
	for _, a := range aliases {
		for _, c := range n.Nodes {
			if strings.EqualFold(c.Tag, a) && c.Text != "" {
				return c.Text
			}
		}
	}
	return ""
}

// DeepValue is Value over the whole subtree.
func (n *Node) DeepValue(aliases ...string) string {
	if n == nil {
		return ""
	}
	f := n.Fields()
	for _, a := range aliases {
		for _, v := range f[strings.ToUpper(a)] {
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// Fields maps every descendant tag to its non-empty texts in document order.
// It is built on first use and cached.
func (n *Node) Fields() map[string][]string {
	if n == nil {
		return nil
	}
	if n.fields != nil {
		return n.fields
	}
	f := make(map[string][]string)
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Nodes {
			if c.Text != "" {
				f[c.Tag] = append(f[c.Tag], c.Text)
			}
			walk(c)
		}
	}
	walk(n)
	n.fields = f
	return f
}
