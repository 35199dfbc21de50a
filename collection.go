// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package placetree

import (
	"errors"
	"fmt"
	"strings"
)

// Tree collection errors
var (
	ErrTreeNoName   = errors.New("tree without name")
	ErrTreeRepeated = errors.New("repeated tree name")
)

// A Collection is a collection of phylogenetic trees.
// Trees are kept in the order they were added.
type Collection struct {
	names []string
	trees map[string]*Tree
}

// NewCollection returns a new empty collection.
func NewCollection() *Collection {
	return &Collection{
		trees: make(map[string]*Tree),
	}
}

// Add adds a tree to a tree collection.
// It will return an error if a the collection
// has a tree with the name of the added tree
// or the tree name is empty.
func (c *Collection) Add(t *Tree) error {
	name := collName(t.Name())
	if name == "" {
		return ErrTreeNoName
	}
	if _, dup := c.trees[name]; dup {
		return fmt.Errorf("%w: %s", ErrTreeRepeated, name)
	}
	c.trees[name] = t
	c.names = append(c.names, t.name)
	return nil
}

// Len returns the number of trees in the collection.
func (c *Collection) Len() int {
	return len(c.names)
}

// Names return the names of the trees in the collection,
// in the order in which they were added.
func (c *Collection) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Tree returns a tree with a given name.
func (c *Collection) Tree(name string) *Tree {
	name = collName(name)
	if name == "" {
		return nil
	}
	return c.trees[name]
}

func collName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
