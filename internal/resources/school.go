package resources

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/pribylovaa/school-admin/internal/apiclient"
	"github.com/pribylovaa/school-admin/internal/models"
)

// Пути коллекций бэкенда.
const (
	PathFeeDiscounts  = "/fee-discounts/"
	PathFeeStructures = "/fee-structures/"
	PathFines         = "/fines/"
	PathExams         = "/exams/"
	PathGroups        = "/api/groups/"
	PathPermissions   = "/api/permissions/"
)

// School — все коллекции административной панели.
type School struct {
	FeeDiscounts  *Resource[models.FeeDiscount]
	FeeStructures *Resource[models.FeeStructure]
	Fines         *Resource[models.Fine]
	Exams         *Resource[models.Exam]
	Groups        *Resource[models.Group]
	Permissions   *Resource[models.Permission]

	lists map[string]func(context.Context, url.Values) (models.Page[any], error)
}

// NewSchool собирает коллекции поверх r.
func NewSchool(r apiclient.Requester) *School {
	s := &School{
		FeeDiscounts:  NewResource[models.FeeDiscount](r, PathFeeDiscounts),
		FeeStructures: NewResource[models.FeeStructure](r, PathFeeStructures),
		Fines:         NewResource[models.Fine](r, PathFines),
		Exams:         NewResource[models.Exam](r, PathExams),
		Groups:        NewResource[models.Group](r, PathGroups),
		Permissions:   NewResource[models.Permission](r, PathPermissions),
	}

	s.lists = map[string]func(context.Context, url.Values) (models.Page[any], error){
		"fee-discounts":  untyped(s.FeeDiscounts),
		"fee-structures": untyped(s.FeeStructures),
		"fines":          untyped(s.Fines),
		"exams":          untyped(s.Exams),
		"groups":         untyped(s.Groups),
		"permissions":    untyped(s.Permissions),
	}

	return s
}

// Names возвращает имена коллекций для ByName в алфавитном порядке.
func (s *School) Names() []string {
	names := make([]string, 0, len(s.lists))
	for n := range s.lists {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// ListByName перечисляет коллекцию по короткому имени ("fines", "groups", ...).
func (s *School) ListByName(ctx context.Context, name string, query url.Values) (models.Page[any], error) {
	list, ok := s.lists[name]
	if !ok {
		return models.Page[any]{}, fmt.Errorf("resources.ListByName: %w: %q", ErrUnknownResource, name)
	}

	return list(ctx, query)
}

func untyped[T any](res *Resource[T]) func(context.Context, url.Values) (models.Page[any], error) {
	return func(ctx context.Context, query url.Values) (models.Page[any], error) {
		page, err := res.List(ctx, query)
		if err != nil {
			return models.Page[any]{}, err
		}

		items := make([]any, 0, len(page.Items))
		for _, it := range page.Items {
			items = append(items, it)
		}

		return models.Page[any]{Items: items, Total: page.Total}, nil
	}
}
