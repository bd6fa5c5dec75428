package patient

import "context"

// LoadResult is the outcome of reading persisted records. Malformed entries
// were skipped and are reported for logging.
type LoadResult struct {
	Patients  []Patient
	Malformed []MalformedRecord
}

// Repository persists the full record sequence. Save always rewrites the whole
// state in store order.
type Repository interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, patients []Patient) error
}

// Observer receives operation outcomes and store gauges.
type Observer interface {
	ObserveOperation(op string, err error)
	ObserveState(patients, occupiedRooms, overbookedRooms int)
}
