// Package ast implements the request AST described in spec §4.3: a unified
// parser producing the same tree from either KVP (GET) or XML (POST) input,
// with explicit namespace resolution and polymorphic child dispatch by
// element tag.
package ast

import (
	"strings"

	"github.com/beevik/etree"
)

// NamespaceContext resolves an XML prefix to its namespace URI by walking
// up an element's ancestor chain and consulting in-scope xmlns declarations,
// exactly as spec §4.3 requires ("the parser resolves prefixes via the
// in-scope xmlns declarations"). beevik/etree deliberately does not resolve
// namespaces for us — Element.Space only ever holds the raw prefix string —
// so this is the seam where that resolution actually happens.
type NamespaceContext struct {
	// byPrefix maps a prefix (empty string for the default namespace) to its URI.
	byPrefix map[string]string
}

// ResolveFrom builds a NamespaceContext from every xmlns/xmlns:prefix
// declaration in scope at el, innermost declarations taking precedence.
func ResolveFrom(el *etree.Element) *NamespaceContext {
	ns := &NamespaceContext{byPrefix: make(map[string]string)}
	var chain []*etree.Element
	for e := el; e != nil; e = e.Parent() {
		chain = append(chain, e)
	}
	// walk from the outermost ancestor inward, so closer declarations override.
	for i := len(chain) - 1; i >= 0; i-- {
		for _, attr := range chain[i].Attr {
			switch {
			case attr.Space == "xmlns":
				ns.byPrefix[attr.Key] = attr.Value
			case attr.Space == "" && attr.Key == "xmlns":
				ns.byPrefix[""] = attr.Value
			}
		}
	}
	return ns
}

// URI resolves prefix to its namespace URI, or "" if undeclared.
func (ns *NamespaceContext) URI(prefix string) string {
	if ns == nil {
		return ""
	}
	return ns.byPrefix[prefix]
}

// Tag resolves an element's (prefix, local) pair to a namespace-qualified
// tag, applying the FES-on-Filter compatibility default from spec §4.3: a
// missing xmlns on <Filter> and its descendants is silently assumed to be
// http://www.opengis.net/fes/2.0.
func (ns *NamespaceContext) Tag(el *etree.Element, insideFilter bool) (space, local string) {
	local = el.Tag
	space = ns.URI(el.Space)
	if space == "" && insideFilter {
		space = "http://www.opengis.net/fes/2.0"
	}
	return space, local
}

// StripPrefix removes a leading "ns:" prefix from s, used when comparing
// ValueReference contents in the absence of an in-scope mapping for that
// prefix (spec §4.3).
func StripPrefix(s string) string {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
