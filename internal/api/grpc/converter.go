package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
)

// Request and response field names.
const (
	fieldSubject     = "subject"
	fieldFilterGroup = "filterGroup"
	fieldStix        = "stix"
	fieldStream      = "stream"
	fieldStreams     = "streams"
	fieldID          = "id"
	fieldValid       = "valid"
	fieldError       = "error"
	fieldMatch       = "match"
	fieldDeleted     = "deleted"
)

func stringField(in *structpb.Struct, name string) string {
	if in == nil {
		return ""
	}
	return in.GetFields()[name].GetStringValue()
}

// rawField returns the generic value of a field, nil when absent.
func rawField(in *structpb.Struct, name string) (interface{}, bool) {
	if in == nil {
		return nil, false
	}
	v, ok := in.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v.AsInterface(), true
}

// jsonField re-encodes an object field as JSON.
func jsonField(in *structpb.Struct, name string) ([]byte, error) {
	v, ok := in.GetFields()[name]
	if !ok || v.GetStructValue() == nil {
		return nil, fmt.Errorf("field %q must be an object", name)
	}
	return v.GetStructValue().MarshalJSON()
}

// toStruct converts any JSON-encodable value to a Struct, going through its
// JSON form so field tags apply.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}

func validateResponseToStruct(resp *dto.ValidateResponse) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldValid: structpb.NewBoolValue(resp.Valid),
	}
	if resp.Error != "" {
		fields[fieldError] = structpb.NewStringValue(resp.Error)
	}
	return &structpb.Struct{Fields: fields}
}

func streamsToStruct(streams []*dto.StreamResponse) (*structpb.Struct, error) {
	if streams == nil {
		streams = []*dto.StreamResponse{}
	}
	return toStruct(map[string]interface{}{fieldStreams: streams})
}
