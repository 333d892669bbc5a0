package output

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/tools/tracer"
)

// Text contains the output methods for tabular CLI responses
type Text struct{}

// OutputDeployResult returns a CLI response
func (c *Text) OutputDeployResult(res []deployment.Response) {
	t := c.table()
	t.AppendHeader(table.Row{"PROCESS", "VERSION", "WORKFLOW KEY"})
	for _, r := range res {
		t.AppendRow(table.Row{r.BpmnProcessID, r.Version, r.Key})
	}
	t.Render()
}

// OutputResponse returns a CLI response
func (c *Text) OutputResponse(res *response.Response) error {
	out, err := responseOutput(res)
	if err != nil {
		return err
	}
	t := c.table()
	t.AppendHeader(table.Row{"FIELD", "VALUE"})
	t.AppendRows([]table.Row{
		{"Partition", out.Partition},
		{"Position", out.Position},
		{"Key", out.Key},
		{"Intent", out.Intent},
	})
	if out.Rejected {
		t.AppendRows([]table.Row{
			{"Rejection", out.RejectionType},
			{"Reason", out.RejectionReason},
		})
	}
	names := make([]string, 0, len(out.Value))
	for k := range out.Value {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		t.AppendRow(table.Row{k, out.Value[k]})
	}
	t.Render()
	return nil
}

// OutputJobCompleted returns a CLI response
func (c *Text) OutputJobCompleted(jobKey int64) {
	if _, err := fmt.Fprintf(Stream, "completed job %d\n", jobKey); err != nil {
		panic(err)
	}
}

// OutputEntry writes one traced record per line.
func (c *Text) OutputEntry(e *tracer.Entry) error {
	line := fmt.Sprintf("%8d %8d %20d %-18s %-18s %s", e.Position, e.SourcePosition, e.Key, e.RecordType, e.ValueType, e.Intent)
	if e.RejectionReason != "" {
		line += " (" + e.RejectionType + ": " + e.RejectionReason + ")"
	}
	if e.Payload != nil {
		js, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("render payload of record %d: %w", e.Position, err)
		}
		line += " " + string(js)
	}
	if _, err := fmt.Fprintln(Stream, line); err != nil {
		return fmt.Errorf("write record %d: %w", e.Position, err)
	}
	return nil
}

func (c *Text) table() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(Stream)
	return t
}
