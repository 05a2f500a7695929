package engine

import "github.com/cockroachdb/errors"

var (
	// ErrNotAlive is returned when an operation targets a deleted or unknown entity.
	ErrNotAlive = errors.New("ecs: entity is not alive")
	// ErrInvalidID is returned for ids that cannot be added to an entity.
	ErrInvalidID = errors.New("ecs: invalid id")
	// ErrNotComponent is returned when data is written to an id without storage.
	ErrNotComponent = errors.New("ecs: id has no data storage")
	// ErrNameConflict is returned when a symbol is already bound to another entity.
	ErrNameConflict = errors.New("ecs: name already in use")
	// ErrComponentDesc is returned when a component descriptor is malformed.
	ErrComponentDesc = errors.New("ecs: invalid component descriptor")
	// ErrQueryInvalid is returned when a query descriptor cannot be compiled.
	ErrQueryInvalid = errors.New("ecs: invalid query descriptor")
	// ErrWorldFinished is returned by operations on a world after Fini.
	ErrWorldFinished = errors.New("ecs: world is finished")
)
