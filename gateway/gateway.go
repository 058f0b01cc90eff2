// Package gateway exposes the bridge backend as a small JSON-over-HTTP
// API for browser and script clients.
//
//	GET  /procedures         registered procedures and signatures
//	GET  /schema.did         service description
//	POST /call/{procedure}   body: JSON argument tuple, reply: JSON result tuple
//
// Arguments and results use the JSON form of package wire.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// MaxBodyBytes bounds a call request body.
const MaxBodyBytes = 1 << 20

// Caller is the part of *client.Proxy the gateway needs.
type Caller interface {
	Schema() *schema.Schema
	Call(ctx context.Context, name string, args ...idl.Value) ([]idl.Value, error)
}

// Gateway routes HTTP requests to a Caller.
type Gateway struct {
	caller      Caller
	logger      zerolog.Logger
	checkHashes bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger logs failed calls to l.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithHashValidation rejects store_transaction_hash arguments that are
// not 0x-prefixed 32-byte hex before they reach the backend.
func WithHashValidation() Option {
	return func(g *Gateway) { g.checkHashes = true }
}

// New builds a gateway over c.
func New(c Caller, opts ...Option) *Gateway {
	g := &Gateway{caller: c, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the routed handler.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/procedures", g.procedures)
	r.Get("/schema.did", g.did)
	r.Post("/call/{procedure}", g.call)
	return r
}

// Procedure describes one registered procedure.
type Procedure struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// ErrorBody is the reply for a failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (g *Gateway) procedures(w http.ResponseWriter, _ *http.Request) {
	s := g.caller.Schema()
	out := make([]Procedure, 0, s.Len())
	for _, name := range s.Names() {
		sig, _ := s.Describe(name)
		out = append(out, Procedure{Name: name, Signature: sig.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) did(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, g.caller.Schema().DID())
}

func (g *Gateway) call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "procedure")
	sig, err := g.caller.Schema().Describe(name)
	if err != nil {
		g.fail(w, name, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		g.fail(w, name, &bridge.EncodeError{Procedure: name, Err: err})
		return
	}
	if len(body) > MaxBodyBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{
			Error: fmt.Sprintf("body exceeds %d bytes", MaxBodyBytes), Kind: "encode",
		})
		return
	}
	args, err := wire.UnmarshalTupleJSON(sig.Args, body)
	if err != nil {
		g.fail(w, name, &bridge.EncodeError{Procedure: name, Err: err})
		return
	}
	if g.checkHashes && name == schema.StoreTransactionHash {
		hash, _ := args[0].AsText()
		if err := validateHash(hash); err != nil {
			g.fail(w, name, &bridge.EncodeError{Procedure: name, Err: err})
			return
		}
	}

	results, err := g.caller.Call(r.Context(), name, args...)
	if err != nil {
		g.fail(w, name, err)
		return
	}
	out, err := wire.MarshalTupleJSON(sig.Results, results)
	if err != nil {
		g.fail(w, name, &bridge.ProtocolDecodeError{Procedure: name, Err: err})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func validateHash(s string) error {
	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("transaction hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return fmt.Errorf("transaction hash %q: %d bytes, want %d", s, len(b), common.HashLength)
	}
	return nil
}

// Status maps a call failure to an HTTP status.
func Status(err error) int {
	switch bridge.ErrorClass(err) {
	case "unknown_procedure":
		return http.StatusNotFound
	case "encode":
		return http.StatusBadRequest
	case "transport", "decode":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) fail(w http.ResponseWriter, name string, err error) {
	class := bridge.ErrorClass(err)
	g.logger.Warn().Err(err).Str("procedure", name).Str("class", class).Msg("gateway call failed")
	writeJSON(w, Status(err), ErrorBody{Error: err.Error(), Kind: class})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
