/*
registry.go - District registration and listing

INVARIANT:
  District names are unique (case-sensitive) for the lifetime of the store.
  The registry checks before inserting, inside the same transaction, and
  translates a storage unique-constraint failure into ErrDuplicateDistrict
  should the check ever be bypassed.
*/
package census

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Registry registers and lists districts.
type Registry struct {
	store Store
	opts  options
}

func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{store: store, opts: newOptions(opts)}
}

// AddDistrict registers a new district.
func (r *Registry) AddDistrict(ctx context.Context, in DistrictInput) (District, error) {
	d, err := r.addDistrict(ctx, in)
	if err != nil {
		r.opts.metrics.ObserveError("add_district", Kind(err))
		return District{}, err
	}
	r.opts.metrics.IncrementDistrictRegistered()
	r.opts.logger.Info("district registered",
		"district_id", d.ID, "name", d.Name, "region", d.Region)
	return d, nil
}

func (r *Registry) addDistrict(ctx context.Context, in DistrictInput) (District, error) {
	in = in.withDefaults()
	if strings.TrimSpace(in.Name) == "" {
		return District{}, invalidInput("district name is required")
	}
	if in.AreaSqKm < 0 || math.IsNaN(in.AreaSqKm) || math.IsInf(in.AreaSqKm, 0) {
		return District{}, invalidInput("area_sqkm must be a non-negative number, got %v", in.AreaSqKm)
	}

	var created District
	err := withTx(ctx, r.store, func(s Store) error {
		existing, err := s.DistrictByName(ctx, in.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return &DuplicateDistrictError{Name: in.Name, ExistingID: existing.ID}
		}

		created, err = s.InsertDistrict(ctx, District{
			Name:         in.Name,
			Region:       in.Region,
			AreaSqKm:     in.AreaSqKm,
			DistrictType: in.DistrictType,
			CreatedAt:    r.opts.now(),
		})
		if errors.Is(err, ErrConstraintViolation) {
			return &DuplicateDistrictError{Name: in.Name}
		}
		return err
	})
	return created, err
}

// ListDistricts returns every district, or only those whose region equals
// region exactly when it is non-empty. Never nil.
func (r *Registry) ListDistricts(ctx context.Context, region string) ([]District, error) {
	districts, err := r.store.ListDistricts(ctx, region)
	if err != nil {
		return nil, err
	}
	if districts == nil {
		districts = []District{}
	}
	return districts, nil
}

// resolveDistrict maps a name to its district or a DistrictNotFoundError.
func resolveDistrict(ctx context.Context, s Store, name string) (District, error) {
	d, err := s.DistrictByName(ctx, name)
	if err != nil {
		return District{}, err
	}
	if d == nil {
		return District{}, &DistrictNotFoundError{Name: name}
	}
	return *d, nil
}
