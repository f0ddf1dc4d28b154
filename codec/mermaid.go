package codec

import (
	"fmt"
	"strings"

	"github.com/meikuraledutech/flowchart"
)

var mermaidEscaper = strings.NewReplacer(
	"\"", "'",
	"\r\n", "<br/>",
	"\n", "<br/>",
	"\r", "<br/>",
)

// Mermaid renders doc as Mermaid flowchart text. Node ids are replaced by
// short positional names since uuids are not valid Mermaid identifiers.
// Shapes follow the node kind:
//   - Producer: ([stadium])
//   - Consumer: [(database)]
//   - Processor: [rectangle]
//
// Groups become subgraphs. Mermaid places a node in one subgraph only, so
// a node listed by several groups is drawn in the first of them.
func Mermaid(doc flowchart.Document) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	names := make(map[string]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := fmt.Sprintf("n%d", i+1)
		names[n.ID] = name

		opener, closer := "[", "]"
		switch n.Kind {
		case flowchart.Producer:
			opener, closer = "([", "])"
		case flowchart.Consumer:
			opener, closer = "[(", ")]"
		}
		label := n.Label
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", name, opener, mermaidEscaper.Replace(label), closer)
	}

	placed := make(map[string]bool)
	for i, g := range doc.Groups {
		var members []string
		for _, id := range g.Members {
			if name, ok := names[id]; ok && !placed[id] {
				placed[id] = true
				members = append(members, name)
			}
		}
		if len(members) == 0 {
			continue
		}
		title := g.Name
		if title == "" {
			title = "Unnamed Group"
		}
		fmt.Fprintf(&sb, "    subgraph g%d[\"%s\"]\n", i+1, mermaidEscaper.Replace(title))
		for _, name := range members {
			fmt.Fprintf(&sb, "        %s\n", name)
		}
		sb.WriteString("    end\n")
	}

	for _, c := range doc.Connections {
		from, ok1 := names[c.SourceID]
		to, ok2 := names[c.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
	}
	return sb.String()
}
