package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/school-admin/internal/models"
)

// Requester — минимальный контракт клиента для типизированных вызовов.
// *Client удовлетворяет ему.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// List запрашивает коллекцию и нормализует ответ в models.Page.
func List[T any](ctx context.Context, r Requester, path string, query url.Values) (models.Page[T], error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + query.Encode()
	}

	var raw json.RawMessage
	if err := r.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return models.Page[T]{}, err
	}

	page, err := DecodePage[T](raw)
	if err != nil {
		return models.Page[T]{}, fmt.Errorf("apiclient.List: %s: %w", path, err)
	}

	return page, nil
}

// listEnvelope — известные формы списочных ответов.
type listEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Results json.RawMessage `json:"results"`
	Items   json.RawMessage `json:"items"`
	Count   *int            `json:"count"`
	Total   *int            `json:"total"`
}

// DecodePage приводит списочный ответ к единому конверту {items, total}.
//
// Поддерживаемые формы (в порядке проверки):
//
//	[...]                              голый массив
//	{"data": {...} | [...]}            вложенный конверт
//	{"results": [...], "count": N}     постраничный ответ
//	{"items": [...], "total": N}       уже нормализованный ответ
//
// Пустое тело и null — пустая страница. Total берётся из count/total,
// при их отсутствии — len(Items).
func DecodePage[T any](raw []byte) (models.Page[T], error) {
	items, total, err := decodeItems[T](raw, 0)
	if err != nil {
		return models.Page[T]{}, err
	}

	if items == nil {
		items = []T{}
	}

	page := models.Page[T]{Items: items, Total: len(items)}
	if total != nil {
		page.Total = *total
	}

	return page, nil
}

// maxEnvelopeDepth ограничивает вложенность data.data.… .
const maxEnvelopeDepth = 3

func decodeItems[T any](raw []byte, depth int) ([]T, *int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return items, nil, nil
	case '{':
	default:
		return nil, nil, fmt.Errorf("%w: body is neither an array nor an object", ErrUnexpectedShape)
	}

	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	total := env.Count
	if total == nil {
		total = env.Total
	}

	var inner json.RawMessage
	switch {
	case len(env.Data) > 0 && depth < maxEnvelopeDepth:
		items, innerTotal, err := decodeItems[T](env.Data, depth+1)
		if err != nil {
			return nil, nil, err
		}
		if innerTotal != nil {
			total = innerTotal
		}
		return items, total, nil
	case len(env.Results) > 0:
		inner = env.Results
	case len(env.Items) > 0:
		inner = env.Items
	default:
		return nil, nil, fmt.Errorf("%w: no data/results/items field", ErrUnexpectedShape)
	}

	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return items, total, nil
}
