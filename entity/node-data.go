package entity

import (
	"encoding/json"
	"fmt"
)

// ConditionOperator is the comparison applied by a condition node.
type ConditionOperator string

const (
	OpEquals   ConditionOperator = "equals"
	OpContains ConditionOperator = "contains"
	OpGt       ConditionOperator = "gt"
	OpLt       ConditionOperator = "lt"
)

// DelayUnit is the time unit of a delay node.
type DelayUnit string

const (
	UnitSec  DelayUnit = "sec"
	UnitMin  DelayUnit = "min"
	UnitHour DelayUnit = "hour"
)

// Typed node payloads. Field names mirror the authoring schema: the builder
// stores message text under "label", the input variable under "variable" and
// the delay duration under "delayTime".

type TriggerData struct {
	Keywords string `json:"triggerKeyword"`
}

type MessageData struct {
	Text string `json:"label" validate:"required"`
}

type InputData struct {
	Question string `json:"question" validate:"required"`
	Variable string `json:"variable" validate:"required"`
}

type ButtonData struct {
	Label   string   `json:"label" validate:"required"`
	Options []string `json:"options" validate:"required,min=1,dive,required"`
}

type MenuData struct {
	Header  string   `json:"header"`
	Body    string   `json:"body" validate:"required"`
	Footer  string   `json:"footer"`
	Button  string   `json:"button"`
	Options []string `json:"options" validate:"required,min=1,max=10,dive,required"`
}

type ConditionData struct {
	Variable string            `json:"variable" validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals contains gt lt"`
	Value    string            `json:"value"`
}

type LoopData struct {
	Count int `json:"count" validate:"required,min=1,max=50"`
}

type DelayData struct {
	Duration int       `json:"delayTime" validate:"required,min=1"`
	Unit     DelayUnit `json:"unit" validate:"required,oneof=sec min hour"`
}

// DecodeNodeData decodes a node's raw data into its closed typed payload.
// Unknown node types are an error; node data is never an open map at runtime.
func DecodeNodeData(n Node) (any, error) {
	var (
		payload any
		err     error
	)
	switch n.Type {
	case NodeTrigger:
		var d TriggerData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeMessage:
		var d MessageData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeInput:
		var d InputData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeButton:
		var d ButtonData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeMenu:
		var d MenuData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeCondition:
		var d ConditionData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeLoop:
		var d LoopData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	case NodeDelay:
		var d DelayData
		err = json.Unmarshal(n.Data, &d)
		payload = d
	default:
		return nil, fmt.Errorf("unknown node type: %s", n.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s node %s: %w", n.Type, n.ID, err)
	}
	return payload, nil
}
