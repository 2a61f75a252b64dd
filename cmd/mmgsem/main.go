// Command mmgsem fits mixture multigroup SEMs from a YAML run configuration.
//
//	mmgsem simulate --config run.yaml --coef 0.8,0 --coef 0,0.8 --out groups.csv
//	mmgsem select   --config run.yaml
//	mmgsem extract  --config run.yaml --k 2
//	mmgsem fit      --config run.yaml --k 2
package main

import (
	"context"
	"os"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
