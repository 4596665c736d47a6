// Package content models a blog body as an ordered sequence of typed blocks
// and renders it to HTML fragments. Decoding is total: a block with an
// unrecognized type becomes an UnknownBlock instead of an error, and the
// renderer degrades it to a neutral placeholder.
package content

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindHeader    Kind = "header"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindImage     Kind = "image"
	KindQuote     Kind = "quote"
	KindUnknown   Kind = "unknown"
)

type ListStyle string

const (
	ListOrdered   ListStyle = "ordered"
	ListUnordered ListStyle = "unordered"
)

// Block is the closed set of content block variants.
type Block interface {
	Kind() Kind
}

type HeaderBlock struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type ParagraphBlock struct {
	Text string `json:"text"`
}

type ListBlock struct {
	Style ListStyle `json:"style"`
	Items []string  `json:"items"`
}

type ImageBlock struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type QuoteBlock struct {
	Text    string `json:"text"`
	Caption string `json:"caption,omitempty"`
}

// UnknownBlock preserves a block whose type is not in the closed set. The
// original tag and payload are kept verbatim so the document round-trips.
type UnknownBlock struct {
	Type string
	Raw  json.RawMessage
}

func (HeaderBlock) Kind() Kind    { return KindHeader }
func (ParagraphBlock) Kind() Kind { return KindParagraph }
func (ListBlock) Kind() Kind      { return KindList }
func (ImageBlock) Kind() Kind     { return KindImage }
func (QuoteBlock) Kind() Kind     { return KindQuote }
func (UnknownBlock) Kind() Kind   { return KindUnknown }

// Document is the ordered block sequence stored in a blog's content column.
type Document struct {
	Blocks []Block
}

type wireBlock struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// imageData accepts both flat {url} payloads and the editor's nested
// {file:{url}} form.
type imageData struct {
	URL  string `json:"url"`
	File *struct {
		URL string `json:"url"`
	} `json:"file"`
	Caption string `json:"caption"`
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 4 {
		return 4
	}
	return level
}

func decodeBlock(w wireBlock) Block {
	data := w.Data
	if data == nil {
		data = json.RawMessage("{}")
	}

	switch Kind(w.Type) {
	case KindHeader:
		var b HeaderBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return UnknownBlock{Type: w.Type, Raw: data}
		}
		b.Level = clampLevel(b.Level)
		return b
	case KindParagraph:
		var b ParagraphBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return UnknownBlock{Type: w.Type, Raw: data}
		}
		return b
	case KindList:
		var b ListBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return UnknownBlock{Type: w.Type, Raw: data}
		}
		if b.Style != ListOrdered {
			b.Style = ListUnordered
		}
		return b
	case KindImage:
		var d imageData
		if err := json.Unmarshal(data, &d); err != nil {
			return UnknownBlock{Type: w.Type, Raw: data}
		}
		url := d.URL
		if url == "" && d.File != nil {
			url = d.File.URL
		}
		return ImageBlock{URL: url, Caption: d.Caption}
	case KindQuote:
		var b QuoteBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return UnknownBlock{Type: w.Type, Raw: data}
		}
		return b
	default:
		return UnknownBlock{Type: w.Type, Raw: data}
	}
}

func encodeBlock(b Block) (wireBlock, error) {
	if u, ok := b.(UnknownBlock); ok {
		raw := u.Raw
		if raw == nil {
			raw = json.RawMessage("{}")
		}
		return wireBlock{Type: u.Type, Data: raw}, nil
	}

	data, err := json.Marshal(b)
	if err != nil {
		return wireBlock{}, err
	}

	return wireBlock{Type: string(b.Kind()), Data: data}, nil
}

// UnmarshalJSON accepts either a bare block array or the editor document
// form {"blocks": [...]}. Both occur in persisted content.
func (d *Document) UnmarshalJSON(data []byte) error {
	var wires []wireBlock
	if err := json.Unmarshal(data, &wires); err != nil {
		var doc struct {
			Blocks []wireBlock `json:"blocks"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("content: malformed document: %w", err)
		}
		wires = doc.Blocks
	}

	d.Blocks = make([]Block, 0, len(wires))
	for _, w := range wires {
		d.Blocks = append(d.Blocks, decodeBlock(w))
	}

	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	wires := make([]wireBlock, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		w, err := encodeBlock(b)
		if err != nil {
			return nil, err
		}
		wires = append(wires, w)
	}

	return json.Marshal(struct {
		Blocks []wireBlock `json:"blocks"`
	}{Blocks: wires})
}
