package dispatch

import (
	"sort"
	"strings"

	"github.com/andrei-cloud/go_cmdhost/internal/registry"
)

// Help answers a help request. texts[0] is the help keyword; texts[1] and
// texts[2], when present, select a category and a command by prefix.
// The rendered text is also sent to the sender.
func (d *Dispatcher) Help(texts []string, sender uint64) (string, error) {
	var (
		out string
		err error
	)
	switch len(texts) {
	case 0, 1:
		out = d.listCategories()
	case 2:
		out, err = d.listCommands(texts[1])
	default:
		var match Match
		match, err = d.Resolve(texts[1:3])
		if err == nil {
			out = match.Command.Help()
		}
	}

	if err != nil {
		d.reply(sender, err.Error())
		return "", err
	}
	d.reply(sender, out)
	return out, nil
}

func (d *Dispatcher) listCategories() string {
	var cats []*registry.Category
	for _, m := range d.catalog.Modules() {
		cats = append(cats, m.Categories.Categories()...)
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Key < cats[j].Key })

	var b strings.Builder
	b.WriteString("Available plugins:")
	for _, c := range cats {
		b.WriteString("\n")
		b.WriteString(entry(c.Key, c.Description))
	}
	return b.String()
}

func (d *Dispatcher) listCommands(prefix string) (string, error) {
	for _, m := range d.catalog.Modules() {
		cat, ok := m.Categories.Find(prefix)
		if !ok {
			continue
		}

		var b strings.Builder
		b.WriteString("Available commands:")
		for _, c := range cat.Sorted() {
			b.WriteString("\n")
			b.WriteString(entry(c.Key, c.Description))
		}
		return b.String(), nil
	}

	return "", UnknownCategoryError{Category: prefix}
}

func entry(key, description string) string {
	if description == "" {
		return key
	}
	return key + " - " + description
}
