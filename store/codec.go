package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec converts payloads to and from their stored byte form.
type Codec interface {
	Marshal(p Payload) ([]byte, error)
	Unmarshal(data []byte) (Payload, error)
}

// JSONCodec stores payloads as JSON. Numbers come back as float64 and nested objects
// as map[string]any.
type JSONCodec struct{}

// Marshal encodes p as a JSON object. A nil payload encodes as {}.
func (JSONCodec) Marshal(p Payload) ([]byte, error) {
	if p == nil {
		p = Payload{}
	}
	return json.Marshal(p)
}

// Unmarshal decodes a JSON object into a Payload.
func (JSONCodec) Unmarshal(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// CBORCodec stores payloads as CBOR. Maps decode as map[string]any so nested values
// look the same as with JSONCodec; integers keep their integer types.
type CBORCodec struct{}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes p with deterministic CBOR encoding.
func (CBORCodec) Marshal(p Payload) ([]byte, error) {
	if p == nil {
		p = Payload{}
	}
	return cborEnc.Marshal(map[string]any(p))
}

// Unmarshal decodes a CBOR map into a Payload.
func (CBORCodec) Unmarshal(data []byte) (Payload, error) {
	var m map[string]any
	if err := cborDec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode cbor payload: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return Payload(m), nil
}
