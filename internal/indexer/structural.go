package indexer

import (
	"strings"

	"github.com/deepindex/codechunk/internal/tokenizer"
	sitter "github.com/smacker/go-tree-sitter"
)

// rawChunk is the interim chunk the structural walker and line splitter
// produce before identity assignment (index, digest) and metadata
// attachment.
type rawChunk struct {
	content   string
	startLine int
	endLine   int
	node      *sitter.Node // nil for line-level chunks
	root      *sitter.Node // nil for line-level chunks
	language  string
	filepath  string
}

// bodyNodeTypes are the node types treated as a declaration's body block
// across grammars: everything up to the first one is the "signature".
var bodyNodeTypes = []string{"block", "statement_block", "compound_statement", "function_body"}

func firstBodyChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, t := range bodyNodeTypes {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

func isBraceBody(bodyType string) bool {
	return bodyType == "statement_block" || bodyType == "compound_statement" || bodyType == "function_body"
}

// signatureText returns the source span from the start of node to the
// start of its body block (or the whole node if it has none), with
// continuation lines of a multi-line signature joined by a single space
// while preserving the first line's indentation. removeColon strips a
// trailing ':' (Python-style headers).
func signatureText(node *sitter.Node, content []byte, removeColon bool) string {
	body := firstBodyChild(node)
	var raw string
	if body != nil {
		start, end := node.StartByte(), body.StartByte()
		if end <= uint32(len(content)) && start <= end {
			raw = string(content[start:end])
		}
	}
	if raw == "" {
		raw = extractNodeText(node, content)
	}
	raw = strings.TrimRight(raw, " \t\n")
	if removeColon {
		raw = strings.TrimSuffix(raw, ":")
	}

	lines := strings.Split(raw, "\n")
	if len(lines) == 1 {
		return lines[0]
	}
	indent := leadingWhitespace(lines[0])
	joined := strings.TrimSpace(lines[0])
	for _, l := range lines[1:] {
		if t := strings.TrimSpace(l); t != "" {
			joined += " " + t
		}
	}
	return indent + joined
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

func indentOf(node *sitter.Node) string {
	return strings.Repeat(" ", int(node.StartPoint().Column))
}

// walkStructural implements the Chunker's structural walker (§4.3): a
// recursive visitor over structural/collapsible node types that emits a
// pre-order sequence of rawChunks.
func walkStructural(node, root *sitter.Node, content []byte, language, path string, maxTokens int, counter *tokenizer.Counter) []rawChunk {
	if node == nil {
		return nil
	}

	nodeType := node.Type()

	if isStructural(nodeType) {
		out := []rawChunk{collapsedChunk(node, root, content, language, path, maxTokens, counter, kindOf(nodeType))}
		for i := 0; i < int(node.ChildCount()); i++ {
			out = append(out, walkStructural(node.Child(i), root, content, language, path, maxTokens, counter)...)
		}
		return out
	}

	if isCollapsible(nodeType) {
		text := extractNodeText(node, content)
		if counter.Count(text) <= maxTokens {
			start, end := nodeLineRange(node)
			return []rawChunk{{content: truncateToFit(text, maxTokens, counter), startLine: start, endLine: end, node: node, root: root, language: language, filepath: path}}
		}
		return []rawChunk{collapsedChunk(node, root, content, language, path, maxTokens, counter, kindOf(nodeType))}
	}

	var out []rawChunk
	for i := 0; i < int(node.ChildCount()); i++ {
		out = append(out, walkStructural(node.Child(i), root, content, language, path, maxTokens, counter)...)
	}
	return out
}

func collapsedChunk(node, root *sitter.Node, content []byte, language, path string, maxTokens int, counter *tokenizer.Counter, kind collapseKind) rawChunk {
	var text string
	switch kind {
	case collapseRoot:
		text = collapseRootNode(node, content, maxTokens, counter)
	case collapseClass:
		text = collapseClassNode(node, content, maxTokens, counter)
	case collapseFunction:
		text = collapseFunctionNode(node, content)
	default:
		text = extractNodeText(node, content)
	}
	text = truncateToFit(text, maxTokens, counter)
	start, end := nodeLineRange(node)
	return rawChunk{content: text, startLine: start, endLine: end, node: node, root: root, language: language, filepath: path}
}

// topLevelClassTypes / topLevelFunctionTypes identify the declarations the
// root collapse enumerates among a module's direct children.
var topLevelClassTypes = map[string]bool{"class_definition": true, "class_declaration": true, "impl_item": true}
var topLevelFunctionTypes = map[string]bool{"function_definition": true, "function_declaration": true, "function_item": true}

func collapseRootNode(node *sitter.Node, content []byte, maxTokens int, counter *tokenizer.Counter) string {
	childCount := int(node.ChildCount())

	firstDeclByte := -1
	for i := 0; i < childCount; i++ {
		c := node.Child(i)
		if c != nil && (topLevelClassTypes[c.Type()] || topLevelFunctionTypes[c.Type()]) {
			firstDeclByte = int(c.StartByte())
			break
		}
	}

	var prefix string
	if firstDeclByte >= 0 {
		prefix = string(content[node.StartByte():uint32(firstDeclByte)])
	} else {
		prefix = extractNodeText(node, content)
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < childCount; i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch {
		case topLevelClassTypes[c.Type()]:
			b.WriteString(signatureText(c, content, true))
			b.WriteString("\n")
			if ctor := firstConstructorSignature(c, content); ctor != "" {
				b.WriteString("    ")
				b.WriteString(ctor)
				b.WriteString("\n")
			}
		case topLevelFunctionTypes[c.Type()]:
			b.WriteString(signatureText(c, content, true))
			b.WriteString(" ...\n")
		}
	}

	result := b.String()
	if counter.Count(result) > maxTokens {
		result = prefix + "...\n"
	}
	return result
}

// firstConstructorSignature returns the signature of the first
// constructor-equivalent method (isConstructorName) directly inside a
// class-like node's body, or "" if none is present. Languages with no such
// concept simply never match, leaving the line absent (§9 open question).
func firstConstructorSignature(classNode *sitter.Node, content []byte) string {
	body := firstBodyChild(classNode)
	if body == nil {
		body = classNode
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		if c == nil || !isCollapsible(c.Type()) || isStructural(c.Type()) {
			continue
		}
		name := firstIdentifierChild(c, content)
		if isConstructorName(name) {
			return signatureText(c, content, true)
		}
	}
	return ""
}

func collapseClassNode(node *sitter.Node, content []byte, maxTokens int, counter *tokenizer.Counter) string {
	body := firstBodyChild(node)
	container := body
	if container == nil {
		container = node
	}

	var methods []*sitter.Node
	for i := 0; i < int(container.ChildCount()); i++ {
		c := container.Child(i)
		if c != nil && isCollapsible(c.Type()) && !isStructural(c.Type()) {
			methods = append(methods, c)
		}
	}

	var prefixEnd uint32
	if len(methods) > 0 {
		prefixEnd = methods[0].StartByte()
	} else if body != nil {
		prefixEnd = body.EndByte()
	} else {
		prefixEnd = node.EndByte()
	}
	prefix := string(content[node.StartByte():prefixEnd])

	lines := make([]string, len(methods))
	for i, m := range methods {
		lines[i] = indentOf(m) + signatureText(m, content, true) + " ..."
	}

	assemble := func(n int) string {
		if n == 0 {
			return prefix
		}
		return prefix + strings.Join(lines[:n], "\n") + "\n"
	}

	n := len(lines)
	result := assemble(n)
	minItems := 3
	if len(lines) < minItems {
		minItems = len(lines)
	}
	for counter.Count(result) > maxTokens && n > minItems {
		n--
		result = assemble(n)
	}
	return result
}

func collapseFunctionNode(node *sitter.Node, content []byte) string {
	body := firstBodyChild(node)
	if body == nil {
		return extractNodeText(node, content)
	}
	prefix := string(content[node.StartByte():body.StartByte()])
	if isBraceBody(body.Type()) {
		return prefix + "{ ... }"
	}
	return prefix + "..."
}

// truncateToFit implements the token overflow fallback: truncate from the
// end, line by line, until content + "\n..." fits within maxTokens.
func truncateToFit(content string, maxTokens int, counter *tokenizer.Counter) string {
	if counter.Count(content) <= maxTokens {
		return content
	}
	lines := strings.Split(content, "\n")
	for len(lines) > 0 {
		lines = lines[:len(lines)-1]
		candidate := strings.Join(lines, "\n") + "\n..."
		if counter.Count(candidate) <= maxTokens {
			return candidate
		}
	}
	return "..."
}
