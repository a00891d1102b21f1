// resources — типизированный доступ к коллекциям REST API школы.
package resources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pribylovaa/school-admin/internal/apiclient"
	"github.com/pribylovaa/school-admin/internal/models"
)

var (
	// ErrInvalidID — идентификатор записи должен быть положительным.
	ErrInvalidID = errors.New("invalid resource id")
	// ErrUnknownResource — нет коллекции с таким именем.
	ErrUnknownResource = errors.New("unknown resource")
)

// Resource — CRUD над одной коллекцией (путь вида "/fines/").
type Resource[T any] struct {
	r    apiclient.Requester
	path string
}

// NewResource создаёт ресурс для коллекции path.
func NewResource[T any](r apiclient.Requester, path string) *Resource[T] {
	path = "/" + strings.Trim(path, "/") + "/"
	return &Resource[T]{r: r, path: path}
}

// Path возвращает путь коллекции.
func (res *Resource[T]) Path() string { return res.path }

func (res *Resource[T]) item(id int) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	return res.path + strconv.Itoa(id) + "/", nil
}

// List возвращает страницу коллекции в едином конверте.
func (res *Resource[T]) List(ctx context.Context, query url.Values) (models.Page[T], error) {
	return apiclient.List[T](ctx, res.r, res.path, query)
}

// Get возвращает запись по id.
func (res *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	return res.call(ctx, "resources.Get", http.MethodGet, id, nil)
}

// Create создаёт запись и возвращает её в представлении сервера.
func (res *Resource[T]) Create(ctx context.Context, in T) (T, error) {
	var out T
	if err := res.r.Do(ctx, http.MethodPost, res.path, in, &out); err != nil {
		return out, fmt.Errorf("resources.Create: %s: %w", res.path, err)
	}

	return out, nil
}

// Update полностью заменяет запись (PUT).
func (res *Resource[T]) Update(ctx context.Context, id int, in T) (T, error) {
	return res.call(ctx, "resources.Update", http.MethodPut, id, in)
}

// Patch частично обновляет запись; fields — только изменяемые поля.
func (res *Resource[T]) Patch(ctx context.Context, id int, fields map[string]any) (T, error) {
	return res.call(ctx, "resources.Patch", http.MethodPatch, id, fields)
}

// Delete удаляет запись.
func (res *Resource[T]) Delete(ctx context.Context, id int) error {
	const op = "resources.Delete"

	path, err := res.item(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := res.r.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("%s: %s: %w", op, path, err)
	}

	return nil
}

func (res *Resource[T]) call(ctx context.Context, op, method string, id int, body any) (T, error) {
	var out T

	path, err := res.item(id)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}

	if err := res.r.Do(ctx, method, path, body, &out); err != nil {
		return out, fmt.Errorf("%s: %s: %w", op, path, err)
	}

	return out, nil
}
