package snapshot

import (
	"strings"

	"golang.org/x/net/html"
)

// ImageRefs lists the image URLs referenced by markup, in document order,
// without duplicates. Inline data URIs are reduced to their header so a
// manifest row never carries the payload.
func ImageRefs(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var refs []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if strings.HasPrefix(v, "data:") {
			if head, _, ok := strings.Cut(v, ","); ok {
				v = head
			}
		}
		if !seen[v] {
			seen[v] = true
			refs = append(refs, v)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img", "source":
				for _, a := range n.Attr {
					switch a.Key {
					case "src":
						add(a.Val)
					case "srcset":
						for _, c := range parseSrcset(a.Val) {
							add(c)
						}
					}
				}
			case "image":
				// SVG <image>: xlink:href or plain href.
				for _, a := range n.Attr {
					if a.Key == "href" || a.Key == "xlink:href" {
						add(a.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

// parseSrcset returns the URL of each srcset candidate. A URL runs to
// the next whitespace, so commas inside it (data URIs) are kept; the
// descriptors after it run to the next comma outside parentheses.
func parseSrcset(v string) []string {
	isSpace := func(b byte) bool {
		return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
	}

	var out []string
	i := 0
	for i < len(v) {
		for i < len(v) && (isSpace(v[i]) || v[i] == ',') {
			i++
		}
		start := i
		for i < len(v) && !isSpace(v[i]) {
			i++
		}
		url := v[start:i]
		if url == "" {
			break
		}
		if trimmed := strings.TrimRight(url, ","); trimmed != url {
			// "a.jpg," has no descriptors.
			if trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, url)

		for depth := 0; i < len(v); i++ {
			if v[i] == '(' {
				depth++
			} else if v[i] == ')' && depth > 0 {
				depth--
			} else if v[i] == ',' && depth == 0 {
				i++
				break
			}
		}
	}
	return out
}
