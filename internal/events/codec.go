// Package events publishes forwarding-table changes to NATS and reads them back.
package events

import (
	"Go2NetSwitch/internal/model"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Encode serializes an event as a protobuf Struct.
func Encode(ev model.Event) ([]byte, error) {
	ts := timestamppb.New(ev.Time)
	payload, err := structpb.NewStruct(map[string]any{
		"kind": string(ev.Kind),
		"time": map[string]any{
			"seconds": float64(ts.GetSeconds()),
			"nanos":   float64(ts.GetNanos()),
		},
		"mac":   ev.MAC,
		"group": ev.Group,
		"port":  ev.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build event payload: %w", err)
	}
	return proto.Marshal(payload)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (model.Event, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		return model.Event{}, fmt.Errorf("error unmarshalling protobuf: %w", err)
	}
	fields := payload.GetFields()
	kind := fields["kind"].GetStringValue()
	if kind == "" {
		return model.Event{}, fmt.Errorf("event payload has no kind")
	}

	ev := model.Event{
		Kind:  model.EventKind(kind),
		MAC:   fields["mac"].GetStringValue(),
		Group: fields["group"].GetStringValue(),
		Port:  fields["port"].GetStringValue(),
	}
	if t := fields["time"].GetStructValue(); t != nil {
		ts := &timestamppb.Timestamp{
			Seconds: int64(t.GetFields()["seconds"].GetNumberValue()),
			Nanos:   int32(t.GetFields()["nanos"].GetNumberValue()),
		}
		if err := ts.CheckValid(); err != nil {
			return model.Event{}, fmt.Errorf("invalid event time: %w", err)
		}
		ev.Time = ts.AsTime()
	}
	return ev, nil
}
