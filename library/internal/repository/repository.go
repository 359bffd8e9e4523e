package repository

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

// Repository stores patrons. HeldBooks is only changed through Hold and
// Release so that it stays a set.
type Repository interface {
	Add(p model.Patron) error
	Get(id string) (model.Patron, error)
	Delete(id string) error
	List() []model.Patron
	Hold(patronID, bookID string) error
	Release(patronID, bookID string) error
}

type repository struct {
	mu      sync.RWMutex
	patrons map[string]*model.Patron
	log     *zap.Logger
}

func NewRepository(log *zap.Logger) *repository {
	return &repository{
		patrons: make(map[string]*model.Patron),
		log:     log.Named("repo"),
	}
}

func (r *repository) Add(p model.Patron) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patrons[p.ID]; ok {
		return errors.Wrapf(errs.ErrDuplicateID, "patron %s", p.ID)
	}
	p = p.Clone()
	p.HeldBooks = nil
	r.patrons[p.ID] = &p
	r.log.Debug("patron added", zap.String("patronID", p.ID), zap.String("plan", p.Plan))
	return nil
}

func (r *repository) Get(id string) (model.Patron, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patrons[id]
	if !ok {
		return model.Patron{}, errors.Wrapf(errs.ErrNotFound, "patron %s", id)
	}
	return p.Clone(), nil
}

func (r *repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patrons[id]; !ok {
		return errors.Wrapf(errs.ErrNotFound, "patron %s", id)
	}
	delete(r.patrons, id)
	return nil
}

func (r *repository) List() []model.Patron {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Patron, 0, len(r.patrons))
	for _, p := range r.patrons {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *repository) Hold(patronID, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patrons[patronID]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "patron %s", patronID)
	}
	if !p.Holds(bookID) {
		p.HeldBooks = append(p.HeldBooks, bookID)
	}
	return nil
}

func (r *repository) Release(patronID, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patrons[patronID]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "patron %s", patronID)
	}
	for i, id := range p.HeldBooks {
		if id == bookID {
			p.HeldBooks = append(p.HeldBooks[:i], p.HeldBooks[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(errs.ErrNotFound, "book %s is not held by patron %s", bookID, patronID)
}
