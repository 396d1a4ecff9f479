package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/flowchart"
	"github.com/nao1215/markdown/mermaid/piechart"
)

const (
	// DefaultFlowchartEdges bounds the mermaid flowchart; larger graphs are truncated
	DefaultFlowchartEdges = 150
	topLinkedCount        = 10
)

// MarkdownRenderer writes a Markdown report with mermaid diagrams
type MarkdownRenderer struct {
	Title          string
	FlowchartEdges int
}

// Write outputs the report for g
func (r MarkdownRenderer) Write(w io.Writer, g *memory.Graph) error {
	title := r.Title
	if title == "" {
		title = "Wikipedia Article Network"
	}
	edgeBudget := r.FlowchartEdges
	if edgeBudget <= 0 {
		edgeBudget = DefaultFlowchartEdges
	}

	nodes := g.Nodes()
	edges := g.Edges()

	md := markdown.NewMarkdown(w)
	md.H1(title)
	md.PlainText("")

	writeSummary(md, nodes, edges)
	writeStatusChart(md, nodes)
	writeFlowchart(md, nodes, edges, edgeBudget)
	writeTopLinked(md, g, nodes)
	writeFailures(md, nodes)

	return md.Build()
}

func writeSummary(md *markdown.Markdown, nodes []storage.Node, edges []storage.Edge) {
	counts := countByStatus(nodes)

	seed := "-"
	if len(nodes) > 0 {
		seed = "`" + nodes[0].URL + "`"
	}

	maxDepth := 0
	for _, node := range nodes {
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", seed},
			{"Articles", strconv.Itoa(len(nodes))},
			{"Links", strconv.Itoa(len(edges))},
			{"Expanded", strconv.Itoa(counts[storage.StatusVisited])},
			{"Failed", strconv.Itoa(counts[storage.StatusFailed])},
			{"Not expanded", strconv.Itoa(counts[storage.StatusDiscovered])},
			{"Deepest expanded level", strconv.Itoa(maxDepth)},
		},
	})
	md.PlainText("")
}

func writeStatusChart(md *markdown.Markdown, nodes []storage.Node) {
	if len(nodes) == 0 {
		return
	}

	counts := countByStatus(nodes)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Articles by crawl status"),
		piechart.WithShowData(true),
	)

	for _, status := range []string{storage.StatusVisited, storage.StatusFailed, storage.StatusDiscovered} {
		if counts[status] > 0 {
			chart.LabelAndIntValue(status, uint64(counts[status]))
		}
	}

	md.H2("Crawl Status")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeFlowchart(md *markdown.Markdown, nodes []storage.Node, edges []storage.Edge, budget int) {
	if len(nodes) == 0 {
		return
	}

	md.H2("Link Graph")
	md.PlainText("")

	if len(edges) > budget {
		md.Note(fmt.Sprintf("Showing the first %d of %d links.", budget, len(edges)))
		md.PlainText("")
		edges = edges[:budget]
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, Flowchart(nodes, edges))
	md.PlainText("")
}

// Flowchart builds mermaid flowchart source for the given edges.
// Only nodes touched by an edge are declared, plus the first node.
// Failed articles carry a "(failed)" suffix in their label.
func Flowchart(nodes []storage.Node, edges []storage.Edge) string {
	byID := make(map[int]storage.Node, len(nodes))
	for _, node := range nodes {
		byID[node.NodeID] = node
	}

	used := make(map[int]bool)
	if len(nodes) > 0 {
		used[nodes[0].NodeID] = true
	}
	for _, edge := range edges {
		used[edge.FromNodeID] = true
		used[edge.ToNodeID] = true
	}

	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fc := flowchart.NewFlowchart(io.Discard, flowchart.WithOrientalLeftToRight())
	for _, id := range ids {
		node := byID[id]
		label := node.Label
		if node.Status == storage.StatusFailed {
			label += " (failed)"
		}
		fc.NodeWithText(flowchartID(id), mermaidText(label))
	}
	for _, edge := range edges {
		fc.LinkWithArrowHead(flowchartID(edge.FromNodeID), flowchartID(edge.ToNodeID))
	}
	return fc.String()
}

func flowchartID(nodeID int) string {
	return "n" + strconv.Itoa(nodeID)
}

func writeTopLinked(md *markdown.Markdown, g *memory.Graph, nodes []storage.Node) {
	type ranked struct {
		node     storage.Node
		inDegree int
	}

	var list []ranked
	for _, node := range nodes {
		if in := g.InDegree(node.URL); in > 0 {
			list = append(list, ranked{node: node, inDegree: in})
		}
	}
	if len(list) == 0 {
		return
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].inDegree > list[j].inDegree
	})
	if len(list) > topLinkedCount {
		list = list[:topLinkedCount]
	}

	rows := make([][]string, 0, len(list))
	for _, item := range list {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s)", item.node.Label, item.node.URL),
			strconv.Itoa(item.inDegree),
			strconv.Itoa(g.OutDegree(item.node.URL)),
			item.node.Status,
		})
	}

	md.H2("Most Linked Articles")
	md.Table(markdown.TableSet{
		Header: []string{"Article", "Linked from", "Links to", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeFailures(md *markdown.Markdown, nodes []storage.Node) {
	var items []string
	for _, node := range nodes {
		if node.Status == storage.StatusFailed {
			items = append(items, fmt.Sprintf("`%s`: %s", node.URL, node.FetchError))
		}
	}
	if len(items) == 0 {
		return
	}

	md.H2("Failed Fetches")
	md.BulletList(items...)
	md.PlainText("")
}

func countByStatus(nodes []storage.Node) map[string]int {
	counts := make(map[string]int, 3)
	for _, node := range nodes {
		counts[node.Status]++
	}
	return counts
}

// mermaidText replaces the double quote, which would close the quoted node label
func mermaidText(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
