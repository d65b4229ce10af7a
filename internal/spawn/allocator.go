package spawn

import (
	"errors"
	"math/rand"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoSpawnPoints is returned when an allocation is requested before any
// spawn point has been enumerated. It is fatal to the match.
var ErrNoSpawnPoints = errors.New("spawn: no spawn points available")

// Point is a named spawn location supplied by the environment.
type Point struct {
	Name     string
	Position mgl64.Vec3
}

// Policy picks one point from a non-empty pool.
type Policy func(points []Point, rng *rand.Rand) Point

// Uniform picks uniformly at random, ignoring where other players stand.
func Uniform(points []Point, rng *rand.Rand) Point {
	if rng == nil {
		return points[rand.Intn(len(points))]
	}
	return points[rng.Intn(len(points))]
}

// Allocator chooses spawn locations from an ordered pool of named points.
// It is used from the tick loop only.
type Allocator struct {
	points *orderedmap.OrderedMap[string, mgl64.Vec3]
	rng    *rand.Rand
	policy Policy
}

// NewAllocator constructs an allocator. A nil policy selects Uniform.
func NewAllocator(rng *rand.Rand, policy Policy) *Allocator {
	if policy == nil {
		policy = Uniform
	}
	return &Allocator{
		points: orderedmap.NewOrderedMap[string, mgl64.Vec3](),
		rng:    rng,
		policy: policy,
	}
}

// Enumerate replaces the pool with the supplied points, keeping their order.
// A repeated name keeps its first position and takes the latest location.
func (a *Allocator) Enumerate(points []Point) int {
	if a == nil {
		return 0
	}
	a.points = orderedmap.NewOrderedMap[string, mgl64.Vec3]()
	for _, point := range points {
		if point.Name == "" {
			continue
		}
		a.points.Set(point.Name, point.Position)
	}
	return a.points.Len()
}

// Len reports the number of enumerated points.
func (a *Allocator) Len() int {
	if a == nil {
		return 0
	}
	return a.points.Len()
}

// Points returns the pool in enumeration order.
func (a *Allocator) Points() []Point {
	if a == nil {
		return nil
	}
	points := make([]Point, 0, a.points.Len())
	for el := a.points.Front(); el != nil; el = el.Next() {
		points = append(points, Point{Name: el.Key, Position: el.Value})
	}
	return points
}

// Lookup returns the named point.
func (a *Allocator) Lookup(name string) (Point, bool) {
	if a == nil {
		return Point{}, false
	}
	pos, ok := a.points.Get(name)
	if !ok {
		return Point{}, false
	}
	return Point{Name: name, Position: pos}, true
}

// Allocate picks a spawn point with the configured policy.
func (a *Allocator) Allocate() (Point, error) {
	if a == nil || a.points.Len() == 0 {
		return Point{}, ErrNoSpawnPoints
	}
	return a.policy(a.Points(), a.rng), nil
}
