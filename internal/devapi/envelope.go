package devapi

import "github.com/pribylovaa/school-admin/internal/devapi/store"

// Envelope — форма списочного ответа коллекции. Бэкенд школы отдаёт
// списки по-разному в разных эндпойнтах; dev API воспроизводит это.
type Envelope int

const (
	// EnvelopePaginated — {"count", "next", "previous", "results"}.
	EnvelopePaginated Envelope = iota
	// EnvelopeNested — {"data": {"count", "results"}}.
	EnvelopeNested
	// EnvelopeArray — голый массив.
	EnvelopeArray
	// EnvelopeData — {"data": [...]}.
	EnvelopeData
)

type paginated struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []store.Record `json:"results"`
}

type nested struct {
	Data struct {
		Count   int            `json:"count"`
		Results []store.Record `json:"results"`
	} `json:"data"`
}

type dataArray struct {
	Data []store.Record `json:"data"`
}

func (e Envelope) render(items []store.Record, total int) any {
	switch e {
	case EnvelopeNested:
		var out nested
		out.Data.Count = total
		out.Data.Results = items
		return out
	case EnvelopeArray:
		return items
	case EnvelopeData:
		return dataArray{Data: items}
	default:
		return paginated{Count: total, Results: items}
	}
}
