package models

// Page — единый конверт списочных ответов API.
// Total — общее число записей на сервере (count), а при его отсутствии — len(Items).
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
