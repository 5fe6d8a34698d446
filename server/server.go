// Package server contains the payload types shared by the HTTP handlers.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"strings"
)

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// FloatT is a struct with a single F64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// Uint32T is a struct with a single U32 field
type Uint32T struct {
	U32 uint32 `json:"u32"`
}

// HumanPayload holds one scalar response.  T selects which field is sent.
type HumanPayload struct {
	T types.BasicKind

	Bool bool

	Float float64

	Uint32 uint32
}

// wrapped returns the single field struct for T
func (hp HumanPayload) wrapped() (interface{}, error) {
	switch hp.T {
	case types.Bool:
		return BoolT{Bool: hp.Bool}, nil
	case types.Float64:
		return FloatT{F64: hp.Float}, nil
	case types.Uint32:
		return Uint32T{U32: hp.Uint32}, nil
	default:
		return nil, fmt.Errorf("HumanPayload: unsupported kind %v", hp.T)
	}
}

// plain formats the payload for a text/plain response
func (hp HumanPayload) plain() string {
	switch hp.T {
	case types.Bool:
		return fmt.Sprint(hp.Bool)
	case types.Float64:
		return fmt.Sprint(hp.Float)
	default:
		return fmt.Sprint(hp.Uint32)
	}
}

// EncodeAndRespond writes the payload as JSON, or as bare text if the client
// asked for text/plain
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, hp.plain())
		return
	}
	obj, err := hp.wrapped()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ReplyJSON(w, obj)
}

// ReplyJSON writes v as a JSON body with status 200
func ReplyJSON(w http.ResponseWriter, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}
