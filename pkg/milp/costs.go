package milp

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// AllPeriods keys the buckets of terms that are not scoped to a single period
const AllPeriods int64 = -1

type Owner int

const (
	TutorOwner Owner = iota
	GroupOwner
	SlotOwner
	GenericOwner
)

func (owner Owner) String() string {
	return [...]string{"tutor", "group", "slot", "generic"}[owner]
}

type Bucket struct {
	Owner  Owner
	Id     uint64 // Tutor, basic group or course slot identifier; unused for generic buckets
	Period int64
}

// CostBuckets accumulates every cost contribution; it is read once by the objective
type CostBuckets struct {
	buckets map[Bucket]*LinExpr
}

type BucketValue struct {
	Bucket
	Value float64
}

func newCostBuckets() *CostBuckets {
	return &CostBuckets{buckets: make(map[Bucket]*LinExpr)}
}

func (costs *CostBuckets) add(bucket Bucket, term LinExpr) {
	expr, ok := costs.buckets[bucket]
	if !ok {
		expr = &LinExpr{}
		costs.buckets[bucket] = expr
	}
	expr.AddExpr(term, 1)
}

// Get returns a copy of a bucket's sum, empty for an unknown bucket
func (costs *CostBuckets) Get(bucket Bucket) LinExpr {
	if expr, ok := costs.buckets[bucket]; ok {
		return Sum(*expr)
	}
	return LinExpr{}
}

func (costs *CostBuckets) Len() int {
	return len(costs.buckets)
}

func (costs *CostBuckets) Total() LinExpr {
	total := LinExpr{}
	for _, expr := range costs.buckets {
		total.AddExpr(*expr, 1)
	}
	return total
}

// Evaluate returns each bucket's value for an assignment, sorted by owner, id and period
func (costs *CostBuckets) Evaluate(values []float64) []BucketValue {
	result := lo.MapToSlice(costs.buckets, func(bucket Bucket, expr *LinExpr) BucketValue {
		return BucketValue{Bucket: bucket, Value: expr.Eval(values)}
	})
	slices.SortFunc(result, func(a, b BucketValue) int {
		return cmp.Or(
			cmp.Compare(a.Owner, b.Owner),
			cmp.Compare(a.Id, b.Id),
			cmp.Compare(a.Period, b.Period),
		)
	})
	return result
}
