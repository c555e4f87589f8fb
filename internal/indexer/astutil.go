package indexer

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// identifierNodeTypes are node types treated as "identifier-like" across
// grammars: the textual name of a declaration is the first child whose
// type is one of these.
var identifierNodeTypes = map[string]bool{
	"identifier":          true,
	"name":                true,
	"type_identifier":     true,
	"property_identifier": true,
	"field_identifier":    true,
	"constant":            true, // Ruby class/module names
}

// callLikeNodeTypes are node types representing a function/method call
// across grammars.
var callLikeNodeTypes = map[string]bool{
	"call":                  true, // Python, Ruby
	"call_expression":       true, // JS/TS, Go, Rust, C, C++
	"method_invocation":     true, // Java
	"invocation_expression": true, // C#
}

// attributeLikeNodeTypes are node types representing attribute/member
// access across grammars.
var attributeLikeNodeTypes = map[string]bool{
	"attribute":                  true, // Python
	"member_expression":          true, // JS/TS
	"field_access":               true, // Java
	"selector_expression":        true, // Go
	"field_expression":           true, // Rust, C, C++
	"member_access_expression":   true, // C#
}

var trailingIdentRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*$`)

func extractNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// firstIdentifierChild returns the text of the first direct child whose
// type is identifier-like.
func firstIdentifierChild(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && identifierNodeTypes[child.Type()] {
			return extractNodeText(child, content)
		}
	}
	return ""
}

// findChildrenByType returns the direct children of node matching any of
// the given types, in order.
func findChildrenByType(node *sitter.Node, types ...string) []*sitter.Node {
	if node == nil {
		return nil
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && want[child.Type()] {
			out = append(out, child)
		}
	}
	return out
}

// findFirstIdentifierDescendant searches node's subtree, in document
// order, for the first identifier-like node, and returns its text.
func findFirstIdentifierDescendant(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	if identifierNodeTypes[node.Type()] {
		return extractNodeText(node, content)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if text := findFirstIdentifierDescendant(node.Child(i), content); text != "" {
			return text
		}
	}
	return ""
}

// findAllIdentifierDescendants collects every identifier-like node's text
// in node's subtree, in document order.
func findAllIdentifierDescendants(node *sitter.Node, content []byte) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if identifierNodeTypes[n.Type()] {
			out = append(out, extractNodeText(n, content))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}

// firstNonArgsChildText returns the text of the first direct child of a
// call node that is not an argument list, approximating the callee
// expression.
func firstNonArgsChildText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	skip := map[string]bool{
		"arguments":      true,
		"argument_list":  true,
		"(":              true,
		")":              true,
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || skip[child.Type()] {
			continue
		}
		if text := strings.TrimSpace(extractNodeText(child, content)); text != "" {
			return text
		}
	}
	return ""
}

// lastIdentSegment extracts the trailing identifier token from a dotted,
// scoped, or arrow-separated expression (e.g. "foo.bar.Baz" -> "Baz").
func lastIdentSegment(s string) string {
	return trailingIdentRe.FindString(s)
}

// nodeParentTypes returns the type of every ancestor of node up to and
// including the tree's root, closest first.
func nodeParentTypes(node *sitter.Node) []string {
	var out []string
	for p := node.Parent(); p != nil; p = p.Parent() {
		out = append(out, p.Type())
	}
	return out
}

// nodeLineRange returns the 1-based inclusive start/end line numbers of a node.
func nodeLineRange(node *sitter.Node) (int, int) {
	return int(node.StartPoint().Row) + 1, int(node.EndPoint().Row) + 1
}
