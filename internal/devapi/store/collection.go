// store — in-memory коллекции dev API.
//
// Записи хранятся как JSON-объекты (map[string]any), поэтому одна реализация
// обслуживает все ресурсы школы; схема задаётся списком обязательных полей.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound — записи с таким id нет.
	ErrNotFound = errors.New("not found")
	// ErrValidation — в записи нет обязательных полей.
	ErrValidation = errors.New("validation failed")
)

// Record — запись коллекции.
type Record = map[string]any

// ValidationError перечисляет поля, не прошедшие проверку (форма ошибок DRF).
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)

	return fmt.Sprintf("%s: %v", ErrValidation, names)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Collection — потокобезопасная коллекция с автоинкрементным id.
type Collection struct {
	name     string
	required []string

	mu     sync.RWMutex
	nextID int
	items  map[int]Record
}

// NewCollection создаёт пустую коллекцию.
func NewCollection(name string, required ...string) *Collection {
	return &Collection{
		name:     name,
		required: required,
		nextID:   1,
		items:    make(map[int]Record),
	}
}

// Name возвращает имя коллекции.
func (c *Collection) Name() string { return c.name }

// List возвращает страницу записей по возрастанию id и общее количество.
// limit <= 0 — без ограничения.
func (c *Collection) List(offset, limit int) ([]Record, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]Record, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, clone(c.items[id]))
	}

	return out, total
}

// Get возвращает запись по id.
func (c *Collection) Get(id int) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", c.name, id, ErrNotFound)
	}

	return clone(rec), nil
}

// Create добавляет запись и присваивает ей id.
func (c *Collection) Create(in Record) (Record, error) {
	rec := clone(in)
	delete(rec, "id")

	if err := c.validate(rec); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	rec["id"] = id
	c.items[id] = rec

	return clone(rec), nil
}

// Replace полностью заменяет запись (PUT).
func (c *Collection) Replace(id int, in Record) (Record, error) {
	rec := clone(in)
	rec["id"] = id

	if err := c.validate(rec); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return nil, fmt.Errorf("%s %d: %w", c.name, id, ErrNotFound)
	}
	c.items[id] = rec

	return clone(rec), nil
}

// Merge обновляет только переданные поля (PATCH).
func (c *Collection) Merge(id int, fields Record) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", c.name, id, ErrNotFound)
	}

	next := clone(cur)
	for k, v := range fields {
		if k == "id" {
			continue
		}
		next[k] = v
	}

	if err := c.validate(next); err != nil {
		return nil, err
	}
	c.items[id] = next

	return clone(next), nil
}

// Delete удаляет запись.
func (c *Collection) Delete(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("%s %d: %w", c.name, id, ErrNotFound)
	}
	delete(c.items, id)

	return nil
}

func (c *Collection) validate(rec Record) error {
	var fields map[string][]string
	for _, name := range c.required {
		v, ok := rec[name]
		if s, isStr := v.(string); ok && v != nil && (!isStr || s != "") {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		fields[name] = []string{"This field is required."}
	}

	if fields != nil {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// clone — поверхностная копия: вложенные значения приходят из json.Unmarshal
// и не модифицируются на месте.
func clone(rec Record) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	return out
}
