package geocode

import (
	"context"

	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// BatchSize is the number of lookups run concurrently in one batch.
const BatchSize = 10

// Resolve returns a point for each input, in input order. Inputs that
// already carry a location are used as-is; the rest are geocoded by
// address. Lookups run in batches of size; every lookup in a batch
// finishes before the next batch starts. A nil entry means the address
// could not be resolved. Resolve fails only when ctx is done.
func Resolve(ctx context.Context, g Geocoder, inputs []Input, size int) ([]*models.GeoPoint, error) {
	if size <= 0 {
		size = BatchSize
	}
	out := make([]*models.GeoPoint, len(inputs))

	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))

		var eg errgroup.Group
		for i := start; i < end; i++ {
			in := inputs[i]
			if in.Location != nil {
				p := *in.Location
				out[i] = &p
				continue
			}
			if in.Address == "" {
				continue
			}
			eg.Go(func() error {
				p, err := g.Geocode(ctx, in.Address)
				if err == nil {
					out[i] = &p
				}
				return nil
			})
		}
		_ = eg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Input is one thing to place on the map.
type Input struct {
	Location *models.GeoPoint
	Address  string
}
