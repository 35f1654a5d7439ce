// Package item defines the Item value that host-registered item-declarator
// builtins push into a scope's item collector, and the collector itself
// (spec §3, §6.2).
package item

import (
	"github.com/declang/declang/errs"
	"github.com/declang/declang/value"
)

// Item is a host-defined named bag of key/value pairs produced by an
// item-declarator function (spec §6.2).
type Item struct {
	Type        string
	Name        string
	KeyValueMap map[string]value.Value
	DefinedFrom errs.Range
}

// Collector accumulates Items pushed by item-declarator builtins during one
// Runner.Run. A scope holds a non-owning pointer to the collector belonging
// to its ancestor chain's root (spec §3's "item collector").
type Collector struct {
	Items []Item
}

// Push appends it to the collector.
func (c *Collector) Push(it Item) {
	c.Items = append(c.Items, it)
}
