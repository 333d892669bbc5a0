package output

import (
	"encoding/json"
	"fmt"

	"github.com/rtenhove/zeebe/server/services/deployment"
	"github.com/rtenhove/zeebe/server/services/response"
	"github.com/rtenhove/zeebe/server/tools/tracer"
)

// Json contains the output methods for returning json CLI responses
type Json struct{}

// OutputDeployResult returns a CLI response
func (c *Json) OutputDeployResult(res []deployment.Response) {
	c.outJson(deployOutput(res))
}

// OutputResponse returns a CLI response
func (c *Json) OutputResponse(res *response.Response) error {
	out, err := responseOutput(res)
	if err != nil {
		return err
	}
	c.outJson(out)
	return nil
}

// OutputJobCompleted returns a CLI response
func (c *Json) OutputJobCompleted(jobKey int64) {
	c.outJson(JobCompletedOutput{JobKey: jobKey})
}

// OutputEntry writes one traced record per line.
func (c *Json) OutputEntry(e *tracer.Entry) error {
	op, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("render record %d: %w", e.Position, err)
	}
	if _, err := fmt.Fprintln(Stream, string(op)); err != nil {
		return fmt.Errorf("write record %d: %w", e.Position, err)
	}
	return nil
}

func (c *Json) outJson(js interface{}) {
	op, err := json.Marshal(&js)
	if err != nil {
		panic(err)
	}
	if _, err := fmt.Fprintln(Stream, string(op)); err != nil {
		panic(err)
	}
}
