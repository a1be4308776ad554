package pipeline

import (
	"bufio"
	"io"

	json "github.com/goccy/go-json"

	"github.com/seqweave/seqweave/pkg/errors"
)

type regionJSON struct {
	Start       int    `json:"start"`
	Len         int    `json:"len"`
	Orientation string `json:"orientation"`
}

type resultJSON struct {
	ID      string                `json:"id"`
	Seq     uint64                `json:"seq"`
	Status  string                `json:"status"`
	Reason  string                `json:"reason,omitempty"`
	Regions map[string]regionJSON `json:"regions,omitempty"`
	Tags    map[string]string     `json:"tags,omitempty"`
}

// ResultEncoder writes execution results to a stream as
// newline-delimited JSON, one object per record with its regions and
// tags. Output is buffered; call Flush before closing the destination.
type ResultEncoder struct {
	bw  *bufio.Writer
	enc *json.Encoder
}

// NewResultEncoder wraps w in a buffered result encoder.
func NewResultEncoder(w io.Writer) *ResultEncoder {
	bw := bufio.NewWriter(w)
	return &ResultEncoder{bw: bw, enc: json.NewEncoder(bw)}
}

// Encode writes one result.
func (e *ResultEncoder) Encode(res ExecutionResult) error {
	out := resultJSON{
		ID:     res.Record.ID,
		Seq:    res.Seq,
		Status: res.Status.String(),
		Reason: res.Reason,
		Tags:   res.Record.Tags(),
	}
	regions := res.Record.Regions()
	if len(regions) > 0 {
		out.Regions = make(map[string]regionJSON, len(regions))
		for name, reg := range regions {
			out.Regions[name] = regionJSON{
				Start:       reg.Start,
				Len:         reg.Len,
				Orientation: reg.Orient.String(),
			}
		}
	}
	if len(out.Tags) == 0 {
		out.Tags = nil
	}
	if err := e.enc.Encode(out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "encoding result for record "+res.Record.ID)
	}
	return nil
}

// Flush writes any buffered output through to the destination.
func (e *ResultEncoder) Flush() error {
	return e.bw.Flush()
}

// WriteJSON drains a result stream to w. It returns after the stream
// closes.
func WriteJSON(w io.Writer, results <-chan ExecutionResult) error {
	enc := NewResultEncoder(w)
	for res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return enc.Flush()
}
