package membership

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

// Registry maps plan name to its checkout limit and fee discount.
type Registry struct {
	mu    sync.RWMutex
	plans map[string]model.MembershipPlan
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger, plans ...model.MembershipPlan) (*Registry, error) {
	r := &Registry{
		plans: make(map[string]model.MembershipPlan, len(plans)),
		log:   log.Named("membership"),
	}
	for _, p := range plans {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Add(plan model.MembershipPlan) error {
	if err := Validate(plan); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[plan.Name]; ok {
		return errors.Wrapf(errs.ErrDuplicateID, "plan %s", plan.Name)
	}
	r.plans[plan.Name] = plan
	r.log.Info("membership plan added",
		zap.String("plan", plan.Name),
		zap.Uint("checkoutLimit", plan.CheckoutLimit),
		zap.Float64("discountRate", plan.DiscountRate))
	return nil
}

func (r *Registry) Plan(name string) (model.MembershipPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[name]
	if !ok {
		return model.MembershipPlan{}, errors.Wrapf(errs.ErrNotFound, "plan %s", name)
	}
	return plan, nil
}

func (r *Registry) Details(name string) (string, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return "", err
	}
	return plan.String(), nil
}

func (r *Registry) Plans() []model.MembershipPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.MembershipPlan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Validate(plan model.MembershipPlan) error {
	if plan.Name == "" {
		return errors.Wrap(errs.ErrInvalidPlan, "name is required")
	}
	if plan.DiscountRate < 0 || plan.DiscountRate > 1 {
		return errors.Wrapf(errs.ErrInvalidPlan, "discount rate %v is outside [0,1]", plan.DiscountRate)
	}
	return nil
}
