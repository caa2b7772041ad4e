// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// extractHTML reduces an HTML document to its visible text, followed by a
// structural appendix listing element IDs, form inputs, and buttons. The
// appendix keeps selector information retrievable so generated test scripts
// can reference concrete elements. Unparseable input falls back to the raw
// text; the HTML parser itself is tolerant of malformed markup.
func extractHTML(raw []byte) string {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}

	var text []string
	var withID, inputs, buttons []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				text = append(text, t)
			}
		case html.ElementNode:
			// Script and style bodies are not visible text.
			if n.Data == "script" || n.Data == "style" {
				return
			}
			collectStructure(n, &withID, &inputs, &buttons)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var b strings.Builder
	b.WriteString("HTML TEXT CONTENT:\n")
	b.WriteString(strings.Join(text, "\n"))
	b.WriteString("\n\nHTML STRUCTURE (Element IDs, Classes, Names):\n")
	b.WriteString(renderStructure(withID, inputs, buttons))
	return b.String()
}

func collectStructure(n *html.Node, withID, inputs, buttons *[]string) {
	id := attr(n, "id")
	class := attr(n, "class")
	name := attr(n, "name")
	typ := attr(n, "type")

	if id != "" {
		line := fmt.Sprintf("  - %s#%s", n.Data, id)
		if class != "" {
			line += " ." + strings.Join(strings.Fields(class), ".")
		}
		if name != "" {
			line += fmt.Sprintf(" [name='%s']", name)
		}
		*withID = append(*withID, line)
	}

	switch n.Data {
	case "input", "select", "textarea":
		if name != "" {
			if typ == "" {
				typ = "text"
			}
			line := fmt.Sprintf("  - %s[name='%s']", n.Data, name)
			if id != "" {
				line += fmt.Sprintf(" id='%s'", id)
			}
			line += fmt.Sprintf(" type='%s'", typ)
			*inputs = append(*inputs, line)
		}
		if n.Data == "input" && (typ == "submit" || typ == "button") {
			*buttons = append(*buttons, buttonLine(n, id))
		}
	case "button":
		*buttons = append(*buttons, buttonLine(n, id))
	}
}

func buttonLine(n *html.Node, id string) string {
	line := "  - " + n.Data
	if id != "" {
		line += fmt.Sprintf(" id='%s'", id)
	}
	if onclick := attr(n, "onclick"); onclick != "" {
		if len(onclick) > 50 {
			onclick = onclick[:50] + "..."
		}
		line += fmt.Sprintf(" onclick='%s'", onclick)
	}
	return line
}

func renderStructure(withID, inputs, buttons []string) string {
	var sections []string
	if len(withID) > 0 {
		sections = append(sections, "Elements with ID:\n"+strings.Join(withID, "\n"))
	}
	if len(inputs) > 0 {
		sections = append(sections, "Form Inputs:\n"+strings.Join(inputs, "\n"))
	}
	if len(buttons) > 0 {
		sections = append(sections, "Buttons:\n"+strings.Join(buttons, "\n"))
	}
	if len(sections) == 0 {
		return "No structural elements found"
	}
	return strings.Join(sections, "\n\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
