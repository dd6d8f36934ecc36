// Package codec converts the application record to and from its persisted
// textual form: key-aliased compact JSON, gzip-compressed and base64-armored
// in the current encoding version. Encoding is deterministic, so a record
// always produces the same payload bytes and size checks are reproducible.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/mathcosmos/recordstore/record"
	"github.com/mathcosmos/recordstore/record/keymap"
)

const (
	// CurrentEncodingVersion is the encoding used for new writes.
	// Version 1 is key-aliased compact JSON.
	// Version 2 wraps version 1 in gzip and base64 so the payload stays
	// textual while large records compress well.
	CurrentEncodingVersion = 2

	// CompatEncodingVersion is the oldest encoding we can still decode.
	// Old payloads stay readable; we never rewrite them in place.
	CompatEncodingVersion = 1
)

// ErrMalformedPayload indicates that a stored payload could not be parsed.
// The orchestrator treats it as "no usable data" and falls back, it never
// surfaces to the caller.
var ErrMalformedPayload = fmt.Errorf("malformed payload")

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
}

// keymap table used by each encoding version
var tableVersions = map[int]int{
	1: 1,
	2: 1,
}

// Encode serializes a record using the current encoding version.
func Encode(r *record.Record) (string, error) {
	return EncodeVersion(r, CurrentEncodingVersion)
}

// EncodeVersion serializes a record with a specific encoding version.
func EncodeVersion(r *record.Record, version int) (string, error) {
	table, err := tableFor(version)
	if err != nil {
		return "", err
	}
	tree, err := toTree(r)
	if err != nil {
		return "", err
	}
	compact, err := json.Marshal(table.Shorten(tree))
	if err != nil {
		return "", err
	}

	switch version {
	case 1:
		return string(compact), nil
	case 2:
		var buf bytes.Buffer
		gw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if err != nil {
			return "", err
		}
		if _, err := gw.Write(compact); err != nil {
			return "", err
		}
		if err := gw.Close(); err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
	default:
		return "", fmt.Errorf("codec: unsupported encoding version %d", version)
	}
}

// Decode parses a payload written with the given encoding version.
// It returns ErrMalformedPayload on any parse failure.
func Decode(payload string, version int) (*record.Record, error) {
	table, err := tableFor(version)
	if err != nil {
		return nil, err
	}

	var compact []byte
	switch version {
	case 1:
		compact = []byte(payload)
	case 2:
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, malformed(err)
		}
		g, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, malformed(err)
		}
		compact, err = io.ReadAll(g)
		if err != nil {
			return nil, malformed(err)
		}
		if err := g.Close(); err != nil {
			return nil, malformed(err)
		}
	default:
		return nil, fmt.Errorf("codec: unsupported encoding version %d", version)
	}

	tree, err := parseTree(compact)
	if err != nil {
		return nil, malformed(err)
	}
	expanded, err := json.Marshal(table.Expand(tree))
	if err != nil {
		return nil, malformed(err)
	}
	rec := record.New()
	if err := json.Unmarshal(expanded, rec); err != nil {
		return nil, malformed(err)
	}
	return rec, nil
}

// DecodeSniff decodes a payload of unknown encoding version, used for the
// legacy single-key layout that carries no manifest. Version 1 payloads
// are raw JSON objects, anything else is assumed to be version 2.
func DecodeSniff(payload string) (*record.Record, error) {
	if len(payload) == 0 {
		return nil, malformed(fmt.Errorf("empty payload"))
	}
	if payload[0] == '{' {
		return Decode(payload, 1)
	}
	return Decode(payload, CurrentEncodingVersion)
}

func tableFor(encodingVersion int) (*keymap.Table, error) {
	tv, exists := tableVersions[encodingVersion]
	if !exists {
		return nil, fmt.Errorf("codec: unsupported encoding version %d", encodingVersion)
	}
	return keymap.ForVersion(tv)
}

// toTree converts the typed record into a generic JSON tree that the
// keymap can rewrite. Numbers are kept as json.Number to preserve the
// exact textual representation across the round trip.
func toTree(r *record.Record) (any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return parseTree(data)
}

func parseTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	// Trailing garbage after the JSON document is also malformed
	if dec.More() {
		return nil, fmt.Errorf("trailing data after payload")
	}
	return tree, nil
}
