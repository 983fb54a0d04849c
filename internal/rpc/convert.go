package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

// Messages travel as google.protobuf.Struct holding the same JSON objects
// the HTTP API accepts and returns.

// fromStruct decodes in into dst through its JSON form.
func fromStruct(in *structpb.Struct, dst any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return cipher.MalformedInput("request is not representable as JSON: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return cipher.InvalidParameter("%s has the wrong type: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return cipher.MalformedInput("invalid request: %v", err)
	}
	return nil
}

// toStruct encodes v, which must marshal to a JSON object.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode response as struct: %w", err)
	}
	return out, nil
}
