package preferences

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type pair struct {
	key   string
	value json.RawMessage
}

var errNotNumber = errors.New("not a number")

func (p pair) number() (float64, error) {
	raw := strings.TrimSpace(string(p.value))
	if raw == "" || !strings.ContainsRune("-0123456789", rune(raw[0])) {
		return 0, errNotNumber
	}

	return strconv.ParseFloat(raw, 64)
}

// decodeObject parses a single JSON object and returns its members in source
// order. A repeated key keeps its first position and takes its last value.
func decodeObject(data []byte) ([]pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var pairs []pair
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		if i, ok := index[key]; ok {
			pairs[i].value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, pair{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after object")
	}

	return pairs, nil
}

// payload returns the text from the first '{' to the last '}' of s.
func payload(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}

	return s[start : end+1], true
}
