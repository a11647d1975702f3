package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a list response is neither an array
// nor a page envelope.
var ErrUnexpectedShape = errors.New("list response is neither an array nor a page envelope")

// Page is a normalised list response.
type Page struct {
	Items []Record `json:"items"`
	Total int64    `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
}

// EmptyPage returns a page with no items.
func EmptyPage() Page {
	return Page{Items: []Record{}}
}

type envelope struct {
	Content       []Record `json:"content"`
	TotalElements *int64   `json:"totalElements"`
	Number        int      `json:"number"`
	Size          *int     `json:"size"`
}

// NormalizePage accepts either a bare JSON array or an envelope
// {content, totalElements, number, size}. A bare array is a single page
// holding every record.
func NormalizePage(raw []byte) (Page, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptyPage(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	switch raw[0] {
	case '[':
		var items []Record
		if err := dec.Decode(&items); err != nil {
			return Page{}, fmt.Errorf("decode list: %w", err)
		}
		return fromItems(items, nil, 0, nil), nil
	case '{':
		var env envelope
		if err := dec.Decode(&env); err != nil {
			return Page{}, fmt.Errorf("decode page: %w", err)
		}
		return fromItems(env.Content, env.TotalElements, env.Number, env.Size), nil
	}
	return Page{}, ErrUnexpectedShape
}

func fromItems(items []Record, total *int64, number int, size *int) Page {
	if items == nil {
		items = []Record{}
	}
	p := Page{Items: items, Total: int64(len(items)), Page: number, Size: len(items)}
	if total != nil {
		p.Total = *total
	}
	if size != nil {
		p.Size = *size
	}
	return p
}
