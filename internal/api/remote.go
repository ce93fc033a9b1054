package api

import (
	"Go2NetSwitch/internal/model"
	"context"
	"time"

	"github.com/projectdiscovery/gologger"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecodeMacTable turns a ShowMacTable document back into table records.
func DecodeMacTable(doc *structpb.Struct) ([]model.CamEntry, error) {
	var out []model.CamEntry
	for _, v := range listField(doc, "entries") {
		row := v.GetStructValue()
		mac, err := model.ParseMAC(stringField(row, "mac"))
		if err != nil {
			return nil, err
		}
		out = append(out, model.CamEntry{
			MAC:      mac,
			Port:     model.PortID(numberField(row, "port_id")),
			PortName: stringField(row, "port"),
			Age:      seconds(numberField(row, "age_seconds")),
		})
	}
	return out, nil
}

// DecodeIgmpTable turns a ShowIgmpTable document back into groups and
// querier names.
func DecodeIgmpTable(doc *structpb.Struct) ([]model.GroupEntry, []string, error) {
	var groups []model.GroupEntry
	for _, v := range listField(doc, "groups") {
		row := v.GetStructValue()
		group, err := model.ParseGroup(stringField(row, "group"))
		if err != nil {
			return nil, nil, err
		}
		entry := model.GroupEntry{
			Group:       group,
			Querier:     model.PortID(numberField(row, "querier_id")),
			QuerierName: stringField(row, "querier"),
		}
		for _, mv := range listField(row, "members") {
			m := mv.GetStructValue()
			entry.Members = append(entry.Members, model.MemberEntry{
				Port:     model.PortID(numberField(m, "port_id")),
				PortName: stringField(m, "port"),
				Age:      seconds(numberField(m, "age_seconds")),
			})
		}
		groups = append(groups, entry)
	}
	var queriers []string
	for _, v := range listField(doc, "queriers") {
		queriers = append(queriers, v.GetStringValue())
	}
	return groups, queriers, nil
}

// DecodePorts turns a ShowPorts document back into port counters.
func DecodePorts(doc *structpb.Struct) []model.PortStats {
	var out []model.PortStats
	for _, v := range listField(doc, "ports") {
		row := v.GetStructValue()
		out = append(out, model.PortStats{
			Name:       stringField(row, "name"),
			SentFrames: uint64(numberField(row, "sent_frames")),
			SentBytes:  uint64(numberField(row, "sent_bytes")),
			RecvFrames: uint64(numberField(row, "recv_frames")),
			RecvBytes:  uint64(numberField(row, "recv_bytes")),
			TxErrors:   uint64(numberField(row, "tx_errors")),
		})
	}
	return out
}

func listField(s *structpb.Struct, key string) []*structpb.Value {
	return s.GetFields()[key].GetListValue().GetValues()
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// numberField returns 0 for a missing or null field.
func numberField(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func seconds(n float64) time.Duration {
	return time.Duration(n) * time.Second
}

// RemoteState is a model.SwitchState backed by a running switch's gRPC
// service. Failed calls are logged and read as empty tables.
type RemoteState struct {
	client  *Client
	timeout time.Duration
}

// NewRemoteState wraps client. Each call is bounded by timeout.
func NewRemoteState(client *Client, timeout time.Duration) *RemoteState {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteState{client: client, timeout: timeout}
}

func (r *RemoteState) call(method string, fn func(context.Context) (*structpb.Struct, error)) *structpb.Struct {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	doc, err := fn(ctx)
	if err != nil {
		gologger.Error().Msgf("%s: %v", method, err)
		return nil
	}
	return doc
}

func (r *RemoteState) MacTable() []model.CamEntry {
	entries, err := DecodeMacTable(r.call("ShowMacTable", func(ctx context.Context) (*structpb.Struct, error) {
		return r.client.ShowMacTable(ctx)
	}))
	if err != nil {
		gologger.Error().Msgf("decoding mac table: %v", err)
	}
	return entries
}

func (r *RemoteState) IgmpTable() []model.GroupEntry {
	groups, _, err := r.igmp()
	if err != nil {
		gologger.Error().Msgf("decoding igmp table: %v", err)
	}
	return groups
}

func (r *RemoteState) Queriers() []string {
	_, queriers, err := r.igmp()
	if err != nil {
		gologger.Error().Msgf("decoding igmp table: %v", err)
	}
	return queriers
}

func (r *RemoteState) igmp() ([]model.GroupEntry, []string, error) {
	return DecodeIgmpTable(r.call("ShowIgmpTable", func(ctx context.Context) (*structpb.Struct, error) {
		return r.client.ShowIgmpTable(ctx)
	}))
}

func (r *RemoteState) PortStats() []model.PortStats {
	return DecodePorts(r.call("ShowPorts", func(ctx context.Context) (*structpb.Struct, error) {
		return r.client.ShowPorts(ctx)
	}))
}

var _ model.SwitchState = (*RemoteState)(nil)
