// Package modeldispatch routes QA/critique prompts to an external AI model
// router over gRPC. It plays the same role as the teacher's gRPC-backed
// LLM client (pkg/agent/llm_grpc.go in the reference repo), but the
// reference repo's wire messages are generated from a .proto file by a
// protoc run this module does not perform, so this package talks the same
// transport with a hand-rolled JSON codec instead of generated protobuf
// stubs (see codec.go).
package modeldispatch

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const dispatchMethod = "/pipeline.modeldispatch.v1.ModelDispatch/Dispatch"

// dispatchRequest is the wire shape of a Dispatch call.
type dispatchRequest struct {
	Role   string `json:"role"`
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// dispatchResponse is the wire shape of a Dispatch reply.
type dispatchResponse struct {
	Text string `json:"text"`
}

// Dispatcher implements ports.ModelDispatcher over a single gRPC
// connection to the model router sidecar.
type Dispatcher struct {
	conn *grpc.ClientConn
}

// Dial connects to the model router at addr. Call Close when done.
func Dial(addr string) (*Dispatcher, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial model router at %s: %w", addr, err)
	}
	return &Dispatcher{conn: conn}, nil
}

// Close releases the underlying gRPC connection.
func (d *Dispatcher) Close() error {
	return d.conn.Close()
}

// Dispatch sends role/prompt/model to the model router and returns its raw
// text response. model may be empty, letting the router pick a default for
// role.
func (d *Dispatcher) Dispatch(ctx context.Context, role, prompt, model string) (string, error) {
	req := &dispatchRequest{Role: role, Prompt: prompt, Model: model}
	resp := &dispatchResponse{}

	if err := d.conn.Invoke(ctx, dispatchMethod, req, resp); err != nil {
		return "", fmt.Errorf("dispatch role %q: %w", role, err)
	}
	return resp.Text, nil
}
