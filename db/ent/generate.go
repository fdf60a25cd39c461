//go:build ignore

package main

import (
	"log"

	"entgo.io/ent/entc"
	"entgo.io/ent/entc/gen"
)

// Generates the typed client into gen/ent. The repository layer talks to the
// tables through entgo.io/ent/dialect/sql directly, so the generated client
// is optional tooling.
func main() {
	err := entc.Generate(
		"./db/ent/schema",
		&gen.Config{
			Target:  "gen/ent",
			Package: "github.com/joseph-ayodele/campus-feed/gen/ent",
			Schema:  "github.com/joseph-ayodele/campus-feed/db/ent/schema",
		},
	)
	if err != nil {
		log.Fatal(err)
	}
}
