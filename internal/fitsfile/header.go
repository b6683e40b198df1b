// Public domain.

package fitsfile

import (
	"strconv"
	"strings"
)

// Card is one header keyword record.
type Card struct {
	Name    string
	Value   any
	Comment string
}

// Header is an ordered set of cards with lookup by keyword.
type Header struct {
	cards []Card
	index map[string]int
}

// NewHeader returns a header holding cards, in order.
func NewHeader(cards ...Card) *Header {
	h := &Header{}
	for _, c := range cards {
		h.SetCard(c)
	}
	return h
}

// Set stores v under name, replacing any existing card of that name.
func (h *Header) Set(name string, v any) {
	h.SetCard(Card{Name: name, Value: v})
}

// SetCard stores c, replacing any existing card of the same name.
func (h *Header) SetCard(c Card) {
	if h.index == nil {
		h.index = map[string]int{}
	}
	if i, ok := h.index[c.Name]; ok {
		h.cards[i] = c
		return
	}
	h.index[c.Name] = len(h.cards)
	h.cards = append(h.cards, c)
}

// Cards returns the cards in order.  The slice must not be modified.
func (h *Header) Cards() []Card { return h.cards }

// Get returns the raw value of keyword name.
func (h *Header) Get(name string) (any, bool) {
	if h == nil {
		return nil, false
	}
	i, ok := h.index[name]
	if !ok {
		return nil, false
	}
	return h.cards[i].Value, true
}

// String returns a string valued keyword with trailing blanks removed.
// Numeric values are formatted.
func (h *Header) String(name string) (string, bool) {
	v, ok := h.Get(name)
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return strings.TrimRight(s, " "), true
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}

// Float returns a numeric keyword.  Strings holding a number are accepted,
// cameras are not consistent about this.
func (h *Header) Float(name string) (float64, bool) {
	v, ok := h.Get(name)
	if !ok {
		return 0, false
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return number(v)
}

// Int returns an integer keyword.  Float values must be integral.
func (h *Header) Int(name string) (int, bool) {
	f, ok := h.Float(name)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
