package mixdown

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the raw encoded bytes behind a LoopInput source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// decodeAll fetches and decodes every enabled loop concurrently and returns
// the tracks in input order, so gain and identity stay paired with the
// originating loop. The first failure cancels the remaining fetches and
// aborts the whole mixdown.
func decodeAll(ctx context.Context, fetcher Fetcher, decoder Decoder, active []LoopInput) ([]*DecodedTrack, error) {
	tracks := make([]*DecodedTrack, len(active))

	g, gctx := errgroup.WithContext(ctx)
	for i, loop := range active {
		g.Go(func() error {
			data, err := fetcher.Fetch(gctx, loop.Source)
			if err != nil {
				return &DecodeError{ResourceID: loop.ID, Err: err}
			}
			track, err := decoder.Decode(gctx, data)
			if err != nil {
				return &DecodeError{ResourceID: loop.ID, Err: err}
			}
			track.Gain = loop.Volume
			tracks[i] = track
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tracks, nil
}
