// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

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

func main() {
	count := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kozo.NewWorld(kozo.WithInitialCapacity(numEntities))
		query, err := kozo.NewQuery2[*comp1, comp2](w, kozo.Cached())
		if err != nil {
			panic(err)
		}
		batch, err := kozo.NewBuilder2[comp1, comp2](w)
		if err != nil {
			panic(err)
		}

		for range iters {
			if _, err := batch.NewEntities(numEntities); err != nil {
				panic(err)
			}
			query.Each(func(e kozo.Entity, c1 *comp1, c2 comp2) {
				c1.V += c2.V
				c1.W += c2.W
				w.Delete(e)
			})
		}
		query.Release()
		w.Fini()
	}
}
