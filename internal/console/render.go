package console

import (
	"Go2NetSwitch/internal/model"
	"fmt"
	"io"
	"strings"
)

// RenderMacTable prints the learning table in address order.
func RenderMacTable(w io.Writer, entries []model.CamEntry) {
	fmt.Fprintf(w, "%-16s %-8s %s\n", "MAC address", "Port", "Age")
	for _, e := range entries {
		fmt.Fprintf(w, "%-16s %-8s %d\n", e.MAC.Cisco(), e.PortName, int64(e.Age.Seconds()))
	}
	fmt.Fprintf(w, "Total: %d\n", len(entries))
}

// RenderIgmpTable prints one line per group with its querier and members.
func RenderIgmpTable(w io.Writer, groups []model.GroupEntry, queriers []string) {
	fmt.Fprintf(w, "%-16s %-8s %s\n", "Group", "Querier", "Ports")
	for _, g := range groups {
		querier := "-"
		if g.HasQuerier() {
			querier = g.QuerierName
		}
		members := make([]string, len(g.Members))
		for i, m := range g.Members {
			members[i] = fmt.Sprintf("%s(%ds)", m.PortName, int64(m.Age.Seconds()))
		}
		fmt.Fprintf(w, "%-16s %-8s %s\n", g.Group, querier, strings.Join(members, ", "))
	}
	if len(queriers) == 0 {
		fmt.Fprintln(w, "Queriers: none")
		return
	}
	fmt.Fprintf(w, "Queriers: %s\n", strings.Join(queriers, ", "))
}

// RenderPorts prints the traffic counters of every port.
func RenderPorts(w io.Writer, stats []model.PortStats) {
	fmt.Fprintf(w, "%-8s %12s %14s %12s %14s %9s\n", "Port", "Sent", "Sent bytes", "Received", "Recv bytes", "Tx errors")
	for _, s := range stats {
		fmt.Fprintf(w, "%-8s %12d %14d %12d %14d %9d\n", s.Name, s.SentFrames, s.SentBytes, s.RecvFrames, s.RecvBytes, s.TxErrors)
	}
}
