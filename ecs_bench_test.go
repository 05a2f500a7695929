package kozo_test

import (
	"fmt"
	"testing"

	"github.com/edwinsyarief/kozo"
)

var benchSizes = []int{1000, 10000, 100000}

func benchName(size int) string {
	return fmt.Sprintf("%dK", size/1000)
}

func BenchmarkWorldNewEntity(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := kozo.NewWorld(kozo.WithInitialCapacity(size))
				b.StartTimer()
				for range size {
					w.NewEntity()
				}
				b.StopTimer()
				w.Fini()
				b.StartTimer()
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkBuilderNewEntities(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := kozo.NewWorld(kozo.WithInitialCapacity(size))
				builder, _ := kozo.NewBuilder[Position](w)
				b.StartTimer()
				_, _ = builder.NewEntities(size)
				b.StopTimer()
				w.Fini()
				b.StartTimer()
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkBuilderNewEntitiesWithValueSet2(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := kozo.NewWorld(kozo.WithInitialCapacity(size))
				builder, _ := kozo.NewBuilder2[Position, Velocity](w)
				b.StartTimer()
				_, _ = builder.NewEntitiesWithValueSet(size, Position{X: 1}, Velocity{X: 1})
				b.StopTimer()
				w.Fini()
				b.StartTimer()
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			w := kozo.NewWorld(kozo.WithInitialCapacity(size))
			defer w.Fini()
			builder, _ := kozo.NewBuilder[Position](w)
			ents, _ := builder.NewEntities(size)
			for b.Loop() {
				for _, e := range ents {
					_ = kozo.GetComponent[Position](w, e)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQuery2Each(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			w := kozo.NewWorld(kozo.WithInitialCapacity(size))
			defer w.Fini()
			builder, _ := kozo.NewBuilder2[Position, Velocity](w)
			_, _ = builder.NewEntitiesWithValueSet(size, Position{}, Velocity{X: 1, Y: 1})
			q, err := kozo.NewQuery2[*Position, Velocity](w, kozo.Cached())
			if err != nil {
				b.Fatal(err)
			}
			defer q.Release()
			for b.Loop() {
				q.Each(func(_ kozo.Entity, p *Position, v Velocity) {
					p.X += v.X
					p.Y += v.Y
				})
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkFieldMutIterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(benchName(size), func(b *testing.B) {
			w := kozo.NewWorld(kozo.WithInitialCapacity(size))
			defer w.Fini()
			builder, _ := kozo.NewBuilder2[Position, Velocity](w)
			_, _ = builder.NewEntitiesWithValueSet(size, Position{}, Velocity{X: 1, Y: 1})
			q, err := kozo.NewQueryBuilder(w).Expr("*Position, Velocity").Cached().Build()
			if err != nil {
				b.Fatal(err)
			}
			defer q.Release()
			for b.Loop() {
				for it := range q.All() {
					pos := kozo.FieldMut[Position](it, 0).Slice()
					vel := kozo.Field[Velocity](it, 1)
					for i := range pos {
						v := vel.At(i)
						pos[i].X += v.X
						pos[i].Y += v.Y
					}
				}
			}
			b.ReportAllocs()
		})
	}
}
