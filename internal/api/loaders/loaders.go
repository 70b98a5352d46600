package loaders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// DonorFetcher loads donors in bulk; missing ids are skipped
type DonorFetcher interface {
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Donor, error)
}

// Loaders contains the request-scoped dataloaders
type Loaders struct {
	DonorLoader *dataloader.Loader[string, *entities.Donor]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(donors DonorFetcher) *Loaders {
	return &Loaders{
		DonorLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Donor] {
			results := make([]*dataloader.Result[*entities.Donor], len(keys))
			found, err := donors.GetByIDs(ctx, keys)

			donorMap := make(map[string]*entities.Donor)
			if err == nil {
				for _, d := range found {
					donorMap[d.ID] = d
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Donor]{Error: err}
				} else if d, ok := donorMap[key]; ok {
					results[i] = &dataloader.Result[*entities.Donor]{Data: d}
				} else {
					results[i] = &dataloader.Result[*entities.Donor]{Error: apperrors.NewNotFoundError(fmt.Sprintf("donor %s not found", key))}
				}
			}
			return results
		}),
	}
}

// For returns the loaders for a given context, or nil outside a request
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request so batches never leak
// data across operators
func Middleware(donors DonorFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(donors))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadDonors resolves ids through the request's donor loader, or directly
// when no loader is attached. Missing donors are left out of the map.
func LoadDonors(ctx context.Context, donors DonorFetcher, ids []string) (map[string]*entities.Donor, error) {
	out := make(map[string]*entities.Donor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	l := For(ctx)
	if l == nil {
		found, err := donors.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, d := range found {
			out[d.ID] = d
		}
		return out, nil
	}

	// queue every key before waiting so they land in one batch
	thunks := make([]dataloader.Thunk[*entities.Donor], len(ids))
	for i, id := range ids {
		thunks[i] = l.DonorLoader.Load(ctx, id)
	}
	for i, thunk := range thunks {
		d, err := thunk()
		if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[ids[i]] = d
	}
	return out, nil
}
