package content

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// legacyBook converts the months.json layout into the book layout:
//
//	{"months": [{"id", "name", "year", "titleCard", "gameType", "gameText",
//	  "question", "answers", "key", "image", "caption"}], "ending": {...}}
//
// Month ids become the chapter order. Images are resolved under image/ as
// the original page did.
func legacyBook(root *yaml.Node) *yaml.Node {
	months := lookup(root, "months")
	book := newMapping()

	var chapters []*yaml.Node
	if months != nil && months.Kind == yaml.SequenceNode {
		for i, m := range months.Content {
			chapters = append(chapters, legacyChapter(i, m))
		}
	}
	book.set("chapters", seqNode(chapters...))

	if e := lookup(root, "ending"); e != nil && e.Kind == yaml.MappingNode {
		book.set("ending", newMapping().
			set("message", lookup(e, "message")).
			set("button_text", lookup(e, "buttonText")).
			set("button_link", lookup(e, "buttonLink")).node)
	}
	return book.node
}

func legacyChapter(index int, m *yaml.Node) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		// Leave it to schema validation to reject.
		return m
	}

	order := lookup(m, "id")
	if order == nil || order.ShortTag() != "!!int" {
		order = intNode(index + 1)
	}

	var label *yaml.Node
	name, year := scalar(lookup(m, "name")), scalar(lookup(m, "year"))
	if l := strings.TrimSpace(name + " " + year); l != "" {
		label = strNode(l)
	}

	var images *yaml.Node
	if img := lookup(m, "image"); img != nil {
		switch img.Kind {
		case yaml.ScalarNode:
			images = seqNode(strNode(path.Join("image", img.Value)))
		case yaml.SequenceNode:
			var items []*yaml.Node
			for _, it := range img.Content {
				items = append(items, strNode(path.Join("image", it.Value)))
			}
			images = seqNode(items...)
		}
	}

	return newMapping().
		set("order", order).
		set("month_label", label).
		set("title", lookup(m, "titleCard")).
		set("narrative", lookup(m, "gameText")).
		set("question", lookup(m, "question")).
		set("answers", lookup(m, "answers")).
		set("correct_key", lookup(m, "key")).
		set("images", images).
		set("caption", lookup(m, "caption")).
		set("minigame", lookup(m, "gameType")).node
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}
