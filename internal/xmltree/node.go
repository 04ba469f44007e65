package xmltree

import "strings"

// Kind discriminates the node variants of the tree.
type Kind int

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
)

// Node is the uniform intermediate representation shared by the loader,
// the chapter assembly, the filters and the serializer.
// Element nodes carry Name, Attr and Children; text and comment nodes carry Text.
type Node struct {
	Kind     Kind
	Name     string
	Attr     map[string]string
	Children []*Node
	Text     string
}

// NewElement returns an element node with the given name and children.
func NewElement(name string, children ...*Node) *Node {
	return &Node{
		Kind:     ElementNode,
		Name:     name,
		Attr:     map[string]string{},
		Children: children,
	}
}

// NewText returns a text leaf.
func NewText(text string) *Node {
	return &Node{Kind: TextNode, Text: text}
}

// NewComment returns a comment leaf.
func NewComment(text string) *Node {
	return &Node{Kind: CommentNode, Text: text}
}

// Wrap builds a container element with the given name holding elements.
func Wrap(name string, elements []*Node) *Node {
	return &Node{
		Kind:     ElementNode,
		Name:     name,
		Attr:     map[string]string{},
		Children: elements,
	}
}

// IsElement reports whether n is an element node.
func (n *Node) IsElement() bool {
	return n != nil && n.Kind == ElementNode
}

// IsText reports whether n is a text leaf.
func (n *Node) IsText() bool {
	return n != nil && n.Kind == TextNode
}

// Is reports whether n is an element with the given name.
func (n *Node) Is(name string) bool {
	return n.IsElement() && n.Name == name
}

// LocalName returns the element name without its namespace prefix.
func (n *Node) LocalName() string {
	if i := strings.LastIndexByte(n.Name, ':'); i >= 0 {
		return n.Name[i+1:]
	}
	return n.Name
}

// AttrValue returns the attribute value and whether it is set.
func (n *Node) AttrValue(key string) (string, bool) {
	if n.Attr == nil {
		return "", false
	}
	v, ok := n.Attr[key]
	return v, ok
}

// SetAttr sets an attribute in place, replacing any prior value.
func (n *Node) SetAttr(key, value string) {
	if n.Attr == nil {
		n.Attr = map[string]string{}
	}
	n.Attr[key] = value
}

// ChildNamed returns the first child element with exactly the given name.
func (n *Node) ChildNamed(name string) *Node {
	for _, c := range n.Children {
		if c.Is(name) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all child elements with exactly the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(name) {
			out = append(out, c)
		}
	}
	return out
}

// ChildLocal returns the first child element whose local name matches,
// whatever namespace prefix it carries.
func (n *Node) ChildLocal(local string) *Node {
	for _, c := range n.Children {
		if c.IsElement() && c.LocalName() == local {
			return c
		}
	}
	return nil
}

// ChildrenLocal returns all child elements whose local name matches.
func (n *Node) ChildrenLocal(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsElement() && c.LocalName() == local {
			out = append(out, c)
		}
	}
	return out
}

// Elements returns the element children of n, skipping text and comments.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// FirstText returns the content of the first text child, or "".
func (n *Node) FirstText() string {
	for _, c := range n.Children {
		if c.IsText() {
			return c.Text
		}
	}
	return ""
}

// TextContent concatenates every descendant text leaf in document order.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	for _, t := range Find(n, (*Node).IsText) {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Name: n.Name, Text: n.Text}
	if n.Attr != nil {
		c.Attr = make(map[string]string, len(n.Attr))
		for k, v := range n.Attr {
			c.Attr[k] = v
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// CloneAll deep-copies a node list.
func CloneAll(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Find returns, depth first and in document order, every descendant of root
// (root excluded) for which match returns true.
func Find(root *Node, match func(*Node) bool) []*Node {
	var out []*Node
	for _, c := range root.Children {
		if match(c) {
			out = append(out, c)
		}
		if len(c.Children) > 0 {
			out = append(out, Find(c, match)...)
		}
	}
	return out
}
