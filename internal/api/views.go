// Package api exposes the switch tables over HTTP and gRPC.
package api

import (
	"Go2NetSwitch/internal/model"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Both servers return the same documents, built here as structpb values so
// the HTTP side can render them with protojson.

func macTableView(entries []model.CamEntry) (*structpb.Struct, error) {
	rows := make([]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]any{
			"mac":         e.MAC.String(),
			"port_id":     int(e.Port),
			"port":        e.PortName,
			"age_seconds": int64(e.Age.Seconds()),
		})
	}
	return structpb.NewStruct(map[string]any{"entries": rows})
}

func igmpTableView(groups []model.GroupEntry, queriers []string) (*structpb.Struct, error) {
	rows := make([]any, 0, len(groups))
	for _, g := range groups {
		members := make([]any, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, map[string]any{
				"port_id":     int(m.Port),
				"port":        m.PortName,
				"age_seconds": int64(m.Age.Seconds()),
			})
		}
		var querier any
		if g.HasQuerier() {
			querier = g.QuerierName
		}
		rows = append(rows, map[string]any{
			"group":      g.Group.String(),
			"querier_id": int(g.Querier),
			"querier":    querier,
			"members":    members,
		})
	}
	qs := make([]any, len(queriers))
	for i, q := range queriers {
		qs[i] = q
	}
	return structpb.NewStruct(map[string]any{"groups": rows, "queriers": qs})
}

func portsView(stats []model.PortStats) (*structpb.Struct, error) {
	rows := make([]any, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, map[string]any{
			"name":        s.Name,
			"sent_frames": s.SentFrames,
			"sent_bytes":  s.SentBytes,
			"recv_frames": s.RecvFrames,
			"recv_bytes":  s.RecvBytes,
			"tx_errors":   s.TxErrors,
		})
	}
	return structpb.NewStruct(map[string]any{"ports": rows})
}

func healthView(state model.SwitchState) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"status": "ok",
		"ports":  len(state.PortStats()),
	})
}

// viewError wraps a failed conversion. It only happens on values structpb
// cannot represent, which would be a programming error.
func viewError(what string, err error) error {
	return fmt.Errorf("failed to build %s view: %w", what, err)
}
