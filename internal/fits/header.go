// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fits

import (
	"strconv"
	"strings"
)

// A single header card. Value is one of string, int64, float64 or bool
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// Ordered FITS header. Keys are stored upper case; the order of first insertion is kept,
// so cards unknown to this program survive a load/save round trip in place.
type Header struct {
	cards []Card
	index map[string]int
}

// Creates an empty header
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Number of cards in the header
func (h *Header) Len() int { return len(h.cards) }

// Keys in header order
func (h *Header) Keys() []string {
	keys := make([]string, len(h.cards))
	for i, c := range h.cards {
		keys[i] = c.Key
	}
	return keys
}

// Cards in header order. The returned slice is a copy
func (h *Header) Cards() []Card {
	return append([]Card(nil), h.cards...)
}

// Set a card value, replacing an existing card of the same key in place.
// Integer and float types are normalized to int64 and float64.
// COMMENT and HISTORY cards are appended instead, with the text in comment.
func (h *Header) Set(key string, value interface{}, comment string) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if isCommentaryKey(key) {
		h.cards = append(h.cards, Card{Key: key, Comment: comment})
		return
	}
	c := Card{Key: key, Value: normalizeValue(value), Comment: comment}
	if i, ok := h.index[key]; ok {
		h.cards[i] = c
		return
	}
	h.index[key] = len(h.cards)
	h.cards = append(h.cards, c)
}

// Card for the given key, if present
func (h *Header) Get(key string) (Card, bool) {
	i, ok := h.index[strings.ToUpper(key)]
	if !ok {
		return Card{}, false
	}
	return h.cards[i], true
}

// Texts of all COMMENT or HISTORY cards, in header order
func (h *Header) Commentary(key string) []string {
	key = strings.ToUpper(key)
	var texts []string
	for _, c := range h.cards {
		if c.Key == key {
			texts = append(texts, c.Comment)
		}
	}
	return texts
}

// Has tells whether a card with the given key exists
func (h *Header) Has(key string) bool {
	_, ok := h.index[strings.ToUpper(key)]
	return ok
}

// String value of the key. Numbers and booleans are formatted; absent keys return ok=false
func (h *Header) GetString(key string) (string, bool) {
	c, ok := h.Get(key)
	if !ok {
		return "", false
	}
	switch v := c.Value.(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		if v {
			return "T", true
		}
		return "F", true
	}
	return "", false
}

// Float value of the key. Numeric strings are parsed; other values return ok=false
func (h *Header) GetFloat(key string) (float64, bool) {
	c, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Integer value of the key. Floats are accepted only if integral
func (h *Header) GetInt(key string) (int64, bool) {
	c, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return i, true
		}
	}
	return 0, false
}

// Deep copy of the header
func (h *Header) Clone() *Header {
	c := NewHeader()
	for _, card := range h.cards {
		c.Set(card.Key, card.Value, card.Comment)
	}
	return c
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case float32:
		return float64(v)
	case string:
		return strings.TrimRight(v, " ")
	}
	return value
}

// Keys describing the data layout. They are derived from the pixel data on write,
// never copied from a loaded header.
func isStructuralKey(key string) bool {
	switch key {
	case "SIMPLE", "BITPIX", "NAXIS", "EXTEND", "BZERO", "BSCALE", "BLANK", "END", "":
		return true
	}
	return strings.HasPrefix(key, "NAXIS")
}

// Keys of free text cards, which may repeat
func isCommentaryKey(key string) bool {
	return key == "COMMENT" || key == "HISTORY"
}
