package render

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/emicklei/dot"
)

var statusColors = map[string]string{
	storage.StatusVisited:    "lightblue",
	storage.StatusFailed:     "salmon",
	storage.StatusDiscovered: "lightgray",
}

// DOTRenderer writes the graph in Graphviz DOT format
type DOTRenderer struct {
	Title string
}

// Write writes one digraph with a node per article and an edge per link
func (r DOTRenderer) Write(w io.Writer, g *memory.Graph) error {
	title := r.Title
	if title == "" {
		title = "Wikipedia Article Network"
	}

	dg := dot.NewGraph(dot.Directed)
	dg.Attr("label", dotText(title))
	dg.Attr("layout", "sfdp")
	dg.Attr("overlap", "prism")

	for _, node := range g.Nodes() {
		dg.Node(node.URL).
			Label("").
			Attr("shape", "point").
			Attr("width", "0.08").
			Attr("style", "filled").
			Attr("fillcolor", statusColors[node.Status]).
			Attr("tooltip", dotText(node.Label)).
			Attr("xlabel", dotText(xlabel(node))).
			Attr("URL", node.URL)
	}

	for _, edge := range g.Edges() {
		dg.Edge(dg.Node(edge.FromURL), dg.Node(edge.ToURL)).
			Attr("color", "gray").
			Attr("arrowsize", "0.3")
	}

	bw := bufio.NewWriter(w)
	dg.Write(bw)
	return bw.Flush()
}

// xlabel only names expanded articles to keep large layouts readable
func xlabel(node storage.Node) string {
	if node.Status == storage.StatusDiscovered {
		return ""
	}
	return node.Label
}

// dotText drops control characters, which a percent-decoded title may carry
// and Graphviz cannot display
func dotText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
