package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Option is a single labelled answer choice.
type Option struct {
	Label Label
	Text  string
}

// Options is the label → text mapping of a question. It encodes as a JSON
// object and keeps the key order it was decoded or built with.
type Options []Option

// Text returns the option text for label.
func (o Options) Text(label Label) (string, bool) {
	for _, opt := range o {
		if opt.Label == label {
			return opt.Text, true
		}
	}
	return "", false
}

// Has reports whether label is present.
func (o Options) Has(label Label) bool {
	_, ok := o.Text(label)
	return ok
}

func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(opt.Label))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(opt.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Options) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected object")
	}

	out := Options{}
	seen := make(map[Label]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options: value for %q: %w", key, err)
		}
		label := Label(strings.ToUpper(strings.TrimSpace(key)))
		if _, dup := seen[label]; dup {
			return fmt.Errorf("options: duplicate label %q", key)
		}
		seen[label] = struct{}{}
		out = append(out, Option{Label: label, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// RecordID identifies a result record. Older documents stored millisecond
// timestamps as JSON numbers, so both numbers and strings decode into it.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*id = RecordID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = RecordID(n.String())
	return nil
}
