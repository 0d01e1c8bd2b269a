package synth_test

import (
	"fmt"

	"github.com/katalvlaran/scflow/synth"
)

func ExampleGenerate() {
	ds, err := synth.Generate(12, 10, synth.WithClusters(3), synth.WithMarkers(2, 4), synth.WithSeed(1))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(ds.Counts.NumGenes(), ds.Counts.NumCells())
	fmt.Println(ds.Truth[:6])
	fmt.Println(ds.Markers[1])
	fmt.Println(ds.Counts.Gene(9))
	// Output:
	// 10 12
	// [0 1 2 0 1 2]
	// [gene-002 gene-003]
	// MT-2
}
