package main

import (
	"fmt"
	"os"

	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/Mili-ssm/Pumpkin/server/world/region"
)

// inspect_region prints the contents of a region file: which chunks are
// stored in it, how large their payloads are and whether they decode
// correctly. Useful when debugging chunk corruption reports.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %v <region file>\n", os.Args[0])
		os.Exit(1)
	}
	f, err := region.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open region: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var stored, corrupt int
	for z := 0; z < region.ChunksPerRegion; z++ {
		for x := 0; x < region.ChunksPerRegion; x++ {
			data, found, err := f.Chunk(x, z)
			if err != nil {
				corrupt++
				fmt.Printf("chunk (%v, %v): %v\n", x, z, err)
				continue
			}
			if !found {
				continue
			}
			stored++
			if _, err := chunk.DecodeDisk(data); err != nil {
				corrupt++
				fmt.Printf("chunk (%v, %v): %v bytes, decode failed: %v\n", x, z, len(data), err)
				continue
			}
			fmt.Printf("chunk (%v, %v): %v bytes\n", x, z, len(data))
		}
	}
	fmt.Printf("%v/%v chunks stored, %v corrupt\n", stored, region.ChunksPerRegion*region.ChunksPerRegion, corrupt)
}
