package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// TurnType is the discriminant tag carried by every Turn.
type TurnType string

const (
	TurnUserTask           TurnType = "user_task"
	TurnModelResponse      TurnType = "model_response"
	TurnFunctionCalling    TurnType = "function_calling"
	TurnToolResponse       TurnType = "tool_response"
	TurnCompressedHistory  TurnType = "compressed_history"
)

// Turn is a discriminated union over TurnType. Exactly one of the typed
// fields is populated, matching the Type tag.
type Turn struct {
	Type      TurnType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	UserTask          *UserTaskTurn          `json:"-"`
	ModelResponse     *ModelResponseTurn     `json:"-"`
	FunctionCalling   *FunctionCallingTurn   `json:"-"`
	ToolResponse      *ToolResponseTurn      `json:"-"`
	CompressedHistory *CompressedHistoryTurn `json:"-"`
}

type UserTaskTurn struct {
	Instruction string `json:"instruction"`
}

type ModelResponseTurn struct {
	Content string `json:"content"`
}

type FunctionCallingTurn struct {
	Response string `json:"response"`
}

// TurnResponseStatus is the outcome recorded on a ToolResponseTurn.
type TurnResponseStatus string

const (
	StatusSucceeded TurnResponseStatus = "succeeded"
	StatusFailed    TurnResponseStatus = "failed"
)

type TurnResponse struct {
	Status  TurnResponseStatus `json:"status"`
	Message string             `json:"message"`
}

type ToolResponseTurn struct {
	Name     string       `json:"name"`
	Response TurnResponse `json:"response"`
}

type CompressedHistoryTurn struct {
	Content            string `json:"content"`
	OriginalTurnsRange [2]int `json:"original_turns_range"`
}

// NewUserTask builds a user_task turn stamped with now.
func NewUserTask(instruction string, now time.Time) Turn {
	return Turn{Type: TurnUserTask, Timestamp: now, UserTask: &UserTaskTurn{Instruction: instruction}}
}

func NewModelResponse(content string, now time.Time) Turn {
	return Turn{Type: TurnModelResponse, Timestamp: now, ModelResponse: &ModelResponseTurn{Content: content}}
}

func NewFunctionCalling(response string, now time.Time) Turn {
	return Turn{Type: TurnFunctionCalling, Timestamp: now, FunctionCalling: &FunctionCallingTurn{Response: response}}
}

func NewToolResponse(name string, status TurnResponseStatus, message string, now time.Time) Turn {
	return Turn{
		Type:      TurnToolResponse,
		Timestamp: now,
		ToolResponse: &ToolResponseTurn{
			Name:     name,
			Response: TurnResponse{Status: status, Message: message},
		},
	}
}

func NewCompressedHistory(content string, rangeStart, rangeEnd int, now time.Time) Turn {
	return Turn{
		Type:      TurnCompressedHistory,
		Timestamp: now,
		CompressedHistory: &CompressedHistoryTurn{
			Content:            content,
			OriginalTurnsRange: [2]int{rangeStart, rangeEnd},
		},
	}
}

// turnWire is the flattened on-disk representation; all variant fields sit
// alongside each other and are sparsely populated depending on Type.
type turnWire struct {
	Type               TurnType           `json:"type"`
	Timestamp          time.Time          `json:"timestamp"`
	Instruction        string             `json:"instruction,omitempty"`
	Content            string             `json:"content,omitempty"`
	Response           string             `json:"response,omitempty"`
	Name               string             `json:"name,omitempty"`
	ToolResponse       *TurnResponse      `json:"tool_response,omitempty"`
	OriginalTurnsRange *[2]int            `json:"original_turns_range,omitempty"`
}

// MarshalJSON flattens the active variant into the wire shape.
// UnmarshalJSON reads the whole object into turnWire in one pass and then
// builds the variant named by its type tag.
func (t Turn) MarshalJSON() ([]byte, error) {
	w := turnWire{Type: t.Type, Timestamp: t.Timestamp}
	switch t.Type {
	case TurnUserTask:
		if t.UserTask != nil {
			w.Instruction = t.UserTask.Instruction
		}
	case TurnModelResponse:
		if t.ModelResponse != nil {
			w.Content = t.ModelResponse.Content
		}
	case TurnFunctionCalling:
		if t.FunctionCalling != nil {
			w.Response = t.FunctionCalling.Response
		}
	case TurnToolResponse:
		if t.ToolResponse != nil {
			w.Name = t.ToolResponse.Name
			resp := t.ToolResponse.Response
			w.ToolResponse = &resp
		}
	case TurnCompressedHistory:
		if t.CompressedHistory != nil {
			w.Content = t.CompressedHistory.Content
			r := t.CompressedHistory.OriginalTurnsRange
			w.OriginalTurnsRange = &r
		}
	default:
		return nil, fmt.Errorf("types: marshal turn: unknown type %q", t.Type)
	}
	return json.Marshal(w)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var w turnWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("types: unmarshal turn: %w", err)
	}
	t.Type = w.Type
	t.Timestamp = w.Timestamp
	switch w.Type {
	case TurnUserTask:
		t.UserTask = &UserTaskTurn{Instruction: w.Instruction}
	case TurnModelResponse:
		t.ModelResponse = &ModelResponseTurn{Content: w.Content}
	case TurnFunctionCalling:
		t.FunctionCalling = &FunctionCallingTurn{Response: w.Response}
	case TurnToolResponse:
		resp := TurnResponse{}
		if w.ToolResponse != nil {
			resp = *w.ToolResponse
		}
		t.ToolResponse = &ToolResponseTurn{Name: w.Name, Response: resp}
	case TurnCompressedHistory:
		rng := [2]int{}
		if w.OriginalTurnsRange != nil {
			rng = *w.OriginalTurnsRange
		}
		t.CompressedHistory = &CompressedHistoryTurn{Content: w.Content, OriginalTurnsRange: rng}
	default:
		return fmt.Errorf("types: unmarshal turn: unknown type %q", w.Type)
	}
	return nil
}

// IsEditable reports whether EditByIndex may target this turn.
func (t Turn) IsEditable() bool {
	return t.Type == TurnUserTask || t.Type == TurnModelResponse
}
