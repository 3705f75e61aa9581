package main

import (
	"fmt"
	"io"

	"tarn/internal/driver"
)

func printVetStats(out io.Writer, res *driver.Result) {
	if out == nil || res == nil {
		return
	}
	stats := res.DB.Stats()
	fmt.Fprintln(out, "stats:")
	fmt.Fprintf(out, "  declarations checked  %d\n", res.Decls)
	fmt.Fprintf(out, "  type parameters       %d\n", res.Params)
	fmt.Fprintf(out, "  indexed declarations  %d\n", stats.Decls)
	fmt.Fprintf(out, "  registry lookups      %d hits, %d misses\n", stats.Hits, stats.Misses)
	fmt.Fprintf(out, "  dependency edges      %d\n", res.Graph.Len())
}

// printDependents lists declarations whose check consulted the named
// signature: после правки этого объявления их нужно перепроверить.
func printDependents(out io.Writer, res *driver.Result, name string) {
	if out == nil || res == nil {
		return
	}
	dependents := res.Graph.Dependents(name)
	if len(dependents) == 0 {
		fmt.Fprintf(out, "nothing depends on `%s`\n", name)
		return
	}
	fmt.Fprintf(out, "dependents of `%s`:\n", name)
	for _, d := range dependents {
		fmt.Fprintf(out, "  %s\n", d)
	}
}
