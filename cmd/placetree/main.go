// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// PlaceTree is a tool to find the nearest neighbors
// of query sequences in gene trees.
package main

import (
	"github.com/js-arias/command"
	"github.com/js-arias/placetree/cmd/placetree/combine"
	"github.com/js-arias/placetree/cmd/placetree/itol"
	"github.com/js-arias/placetree/cmd/placetree/neighbors"
	"github.com/js-arias/placetree/cmd/placetree/sim"
	"github.com/js-arias/placetree/cmd/placetree/stats"
	"github.com/js-arias/placetree/cmd/placetree/tax"
	"github.com/js-arias/placetree/cmd/placetree/terms"
)

var app = &command.Command{
	Usage: "placetree <command> [<argument>...]",
	Short: "a tool to find the nearest neighbors of queries in gene trees",
}

func init() {
	app.Add(combine.Command)
	app.Add(itol.Command)
	app.Add(neighbors.Command)
	app.Add(sim.Command)
	app.Add(stats.Command)
	app.Add(tax.Command)
	app.Add(terms.Command)
}

func main() {
	app.Main()
}
