package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

const (
	TypeHello = "HELLO"
	TypeState = "STATE"
	TypeCmd   = "CMD"
	TypeErr   = "ERR"
)

// BaseMsg is decoded first to route incoming messages.
type BaseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HelloMsg opens an observer session.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// StateMsg is the per-tick observer broadcast. It carries everything the
// rendering/UI layer reads from the core: vehicle poses, idle markers,
// statistics, and the currency transactions emitted this tick.
type StateMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Digest          string        `json:"digest"`
	Vehicles        []VehicleView `json:"vehicles"`
	IdleNodes       []int         `json:"idle_nodes"`
	Stats           []NodeStats   `json:"stats"`
	Transactions    []Transaction `json:"transactions"`
}

type VehicleView struct {
	ID        int     `json:"id"`
	Pos       [2]int  `json:"pos"`
	Direction string  `json:"direction"`
	Resource  string  `json:"resource,omitempty"`
	Amount    float64 `json:"amount"`
}

type NodeStats struct {
	NodeID      int                `json:"node_id"`
	Production  map[string]float64 `json:"production,omitempty"`
	Consumption map[string]float64 `json:"consumption,omitempty"`
	Export      map[string]float64 `json:"export,omitempty"`
	Import      map[string]float64 `json:"import,omitempty"`
}

// Transaction is a currency ledger event. Amount is signed: credits are
// positive (exports), debits negative (imports). The core never reads a
// balance; it only emits these.
type Transaction struct {
	Tick     uint64 `json:"tick"`
	NodeID   int    `json:"node_id"`
	Resource string `json:"resource"`
	Amount   int64  `json:"amount"`
}

// CmdMsg is the small command envelope accepted from observer clients.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`

	// SET_RECIPE_ACTIVE
	NodeID  int    `json:"node_id,omitempty"`
	Product string `json:"product,omitempty"`
	Active  *bool  `json:"active,omitempty"`

	// SET_PROGRAM
	CarID        int           `json:"car_id,omitempty"`
	Instructions []Instruction `json:"instructions,omitempty"`

	Cmd string `json:"cmd"`
}

// Instruction mirrors the sim's vehicle instruction set on the wire.
type Instruction struct {
	Op       string  `json:"op"`
	Target   *[2]int `json:"target,omitempty"`
	Resource string  `json:"resource,omitempty"`
}

// DecodeBase routes an incoming frame by its type field.
func DecodeBase(b []byte) (BaseMsg, error) {
	var base BaseMsg
	if err := json.Unmarshal(b, &base); err != nil {
		return BaseMsg{}, err
	}
	if base.Type == "" {
		return BaseMsg{}, fmt.Errorf("missing type")
	}
	return base, nil
}

type ErrMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
