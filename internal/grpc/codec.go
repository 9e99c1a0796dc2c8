package grpcserver

import (
	"fmt"

	"marketplaceDelivery/internal/delivery"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"
)

// decode copies the fields of a request Struct into dst by their json names.
func decode(in *structpb.Struct, dst any) error {
	if in == nil {
		return nil
	}
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &delivery.Error{Kind: delivery.KindValidation, Message: "malformed request", Err: err}
	}
	return nil
}

// encode turns an envelope into the Struct sent on the wire.
func encode(env delivery.Envelope) (*structpb.Struct, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return structpb.NewStruct(m)
}
