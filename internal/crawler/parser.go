package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/catalogsnap/internal/model"
)

// Icon alt texts that identify listing rows. The catalogs this tool
// targets mark every row with an icon: FOLDER for sub-listings, FILE for
// terminal entries.
const (
	iconAltFolder = "FOLDER"
	iconAltFile   = "FILE"
)

// Parser extracts catalog entries from listing page HTML.
//
// Design decision: We use golang.org/x/net/html rather than regex or a
// CSS-selector library because it tolerates the malformed HTML these
// catalogs serve, walks the document in source order (which defines the
// entry order contract), and keeps the dependency surface small.
type Parser struct{}

// NewParser creates a listing page parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts the entries of a listing page in document order.
//
// A listing is the first <table> containing an <img> whose alt text is
// FOLDER or FILE. Each row contributes one entry: the icon alt decides
// the kind, the first anchor supplies the name and the address. The
// address is resolved against the page's own address.
//
// Pages without a recognizable listing yield an empty result; that is
// indistinguishable from a legitimately empty listing, by contract.
func (p *Parser) Parse(base string, body []byte) []model.Entry {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// html.Parse recovers from almost anything; when it cannot, the
		// page simply has no entries.
		return nil
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		baseURL = nil
	}

	table := findListingTable(doc)
	if table == nil {
		return nil
	}

	var entries []model.Entry
	walkElements(table, "tr", func(row *html.Node) {
		icon := firstElement(row, "img")
		link := firstElement(row, "a")
		if icon == nil || link == nil {
			return
		}

		kind, ok := iconKind(getAttr(icon, "alt"))
		if !ok {
			return
		}

		href := strings.TrimSpace(getAttr(link, "href"))
		if href == "" {
			return
		}

		entries = append(entries, model.Entry{
			Name:    cleanName(nodeText(link)),
			Address: resolveAddress(baseURL, href),
			Kind:    kind,
		})
	})

	return entries
}

// iconKind maps an icon alt text to an entry kind.
func iconKind(alt string) (model.Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(alt)) {
	case iconAltFolder:
		return model.KindInternal, true
	case iconAltFile:
		return model.KindLeaf, true
	default:
		return 0, false
	}
}

// findListingTable returns the first table that contains a recognized
// row icon. Listing pages carry several layout tables; the icons are
// what distinguish the listing itself.
func findListingTable(doc *html.Node) *html.Node {
	var table *html.Node
	walkElements(doc, "table", func(candidate *html.Node) {
		if table != nil {
			return
		}
		walkElements(candidate, "img", func(img *html.Node) {
			if table != nil {
				return
			}
			if _, ok := iconKind(getAttr(img, "alt")); ok {
				table = candidate
			}
		})
	})
	return table
}

// walkElements calls fn for every element named tag in the subtree,
// in document order. The root itself is not visited.
func walkElements(root *html.Node, tag string, fn func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			fn(c)
		}
		walkElements(c, tag, fn)
	}
}

// firstElement returns the first descendant element with the given tag.
func firstElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walkElements(root, tag, func(n *html.Node) {
		if found == nil {
			found = n
		}
	})
	return found
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText collects the text content of a node and its descendants.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// cleanName canonicalizes a scraped display label: non-breaking spaces
// become plain spaces, runs of whitespace collapse to one, and the
// result is NFC-normalized so visually identical names compare equal.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	name = strings.Join(strings.Fields(name), " ")
	return norm.NFC.String(name)
}

// resolveAddress resolves an href against the listing page's address.
// Unresolvable hrefs are kept verbatim; the crawler will fail their
// fetch and carry on.
func resolveAddress(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
