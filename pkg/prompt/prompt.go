// Package prompt assembles a structured Prompt object from a session and
// the active settings (§4.D). It never renders a wire payload itself —
// that is the LM transport's job.
package prompt

import "github.com/agentpipe/orchestrator/pkg/types"

// SessionGoal is the session's stated purpose and background.
type SessionGoal struct {
	Purpose    string `json:"purpose"`
	Background string `json:"background"`
}

// ProcessingConfig flags processing-affecting session options.
type ProcessingConfig struct {
	MultiStepReasoningActive bool `json:"multi_step_reasoning_active"`
}

// Constraints carries the session's language and sampling configuration.
type Constraints struct {
	Language         string                    `json:"language"`
	Hyperparameters  *types.Hyperparameters    `json:"hyperparameters,omitempty"`
	ProcessingConfig ProcessingConfig          `json:"processing_config"`
}

// RoleDefinitions is the concatenated content of every resolved role file.
type RoleDefinitions struct {
	Definitions []string `json:"definitions"`
}

// FileReference is one active reference resolved to file content.
type FileReference struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ConversationHistory is the chronological, filtered turn window.
type ConversationHistory struct {
	Turns []types.Turn `json:"turns"`
}

// CurrentTask is the instruction the model should act on this iteration.
type CurrentTask struct {
	Instruction string `json:"instruction"`
}

// Artifact is a file produced or consumed by this run, inlined verbatim.
type Artifact struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

// Prompt is the structured payload the assembler produces. A consumer
// outside this module's scope renders it into a model-specific wire
// format.
type Prompt struct {
	MainInstruction     string          `json:"main_instruction"`
	SessionGoal         SessionGoal     `json:"session_goal"`
	Constraints         Constraints     `json:"constraints"`
	Roles               RoleDefinitions `json:"roles"`
	FileReferences      []FileReference `json:"file_references"`
	Todos               []types.TodoItem `json:"todos,omitempty"`
	ConversationHistory ConversationHistory `json:"conversation_history"`
	CurrentTask         CurrentTask     `json:"current_task"`
	Artifacts           []Artifact      `json:"artifacts,omitempty"`
	Procedure           string          `json:"procedure,omitempty"`
	CurrentDatetime     string          `json:"current_datetime"`
	ReasoningProcess    string          `json:"reasoning_process,omitempty"`
}
