// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"github.com/edwinsyarief/kozo"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 1000
	entities := 100000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kozo.NewWorld(kozo.WithInitialCapacity(numEntities))
		batch, err := kozo.NewBuilder4[comp1, comp2, comp3, comp4](w)
		if err != nil {
			panic(err)
		}
		if _, err := batch.NewEntities(numEntities); err != nil {
			panic(err)
		}
		query, err := kozo.NewQueryBuilder(w).
			Expr("*comp1, comp2, comp3, comp4").
			Cached().
			Build()
		if err != nil {
			panic(err)
		}

		for range iters {
			for it := range query.All() {
				c1 := kozo.FieldMut[comp1](it, 0).Slice()
				c2 := kozo.Field[comp2](it, 1)
				for i := range c1 {
					v := c2.At(i)
					c1[i].V += v.V
					c1[i].W += v.W
				}
			}
		}
		query.Release()
		w.Fini()
	}
}
