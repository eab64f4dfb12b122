// Package pb holds the wire messages of the combat services. Messages travel
// as google.protobuf.Struct so both sides share one schema without generated
// code; the typed structs below are the Go view of those payloads.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

func number(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func requireString(s *structpb.Struct, key string) (string, error) {
	v := str(s, key)
	if v == "" {
		return "", fmt.Errorf("field %q is required", key)
	}
	return v, nil
}

func int64Ptr(s *structpb.Struct, key string) *int64 {
	n, ok := number(s, key)
	if !ok {
		return nil
	}
	v := int64(n)
	return &v
}

func int32Ptr(s *structpb.Struct, key string) *int32 {
	n, ok := number(s, key)
	if !ok {
		return nil
	}
	v := int32(n)
	return &v
}

func numberValue(n float64) *structpb.Value { return structpb.NewNumberValue(n) }
