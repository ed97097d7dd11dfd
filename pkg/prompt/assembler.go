package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	gopdf "github.com/ledongthuc/pdf"

	"github.com/agentpipe/orchestrator/pkg/turns"
	"github.com/agentpipe/orchestrator/pkg/types"
)

const reasoningProcessBoilerplate = "Think step by step. Decompose the instruction into sub-goals, decide which tool (if any) advances the next sub-goal, and only produce a final answer once every sub-goal is satisfied."

const maxPDFPages = 20

// Settings is the subset of configuration the assembler needs to render a
// Prompt: the fixed instruction text, language, TTL/expiry thresholds,
// and the project root that reference/role paths must stay inside.
type Settings struct {
	MainInstruction        string
	Language                string
	ToolResponseLimit       int
	ProjectRoot             string
	Timezone                *time.Location
}

// Assembler builds a Prompt from a Session and the active Settings.
type Assembler struct {
	Settings Settings
}

func NewAssembler(settings Settings) *Assembler {
	return &Assembler{Settings: settings}
}

// Assemble renders sess into a structured Prompt. currentInstruction is
// the instruction driving this ReAct iteration (from the pool's pending
// user_task turn). If the newest history turn is a user_task with that
// same instruction, Assemble drops it from the history.
func (a *Assembler) Assemble(sess *types.Session, currentInstruction string) Prompt {
	p := Prompt{
		MainInstruction: a.Settings.MainInstruction,
		SessionGoal:     SessionGoal{Purpose: sess.Purpose, Background: sess.Background},
		Constraints: Constraints{
			Language:        a.Settings.Language,
			Hyperparameters: sess.Hyperparameters,
			ProcessingConfig: ProcessingConfig{
				MultiStepReasoningActive: sess.MultiStepReasoningEnabled,
			},
		},
		Roles:          RoleDefinitions{Definitions: a.resolveRoles(sess.Roles)},
		FileReferences: a.resolveReferences(sess.References),
		Todos:          sess.Todos,
		CurrentTask:    CurrentTask{Instruction: currentInstruction},
		Artifacts:      a.resolveArtifacts(sess.Artifacts),
		Procedure:      a.readProjectFile(sess.Procedure),
		CurrentDatetime: a.now().Format(time.RFC3339),
	}

	if sess.MultiStepReasoningEnabled {
		p.ReasoningProcess = reasoningProcessBoilerplate
	}

	history := turns.NewCollection(sess.Turns).GetForPrompt(a.Settings.ToolResponseLimit)
	chronological := turns.Reverse(history)
	if n := len(chronological); n > 0 {
		last := chronological[n-1]
		if last.Type == types.TurnUserTask && last.UserTask.Instruction == currentInstruction {
			chronological = chronological[:n-1]
		}
	}
	p.ConversationHistory = ConversationHistory{Turns: chronological}

	return p
}

func (a *Assembler) now() time.Time {
	if a.Settings.Timezone != nil {
		return time.Now().In(a.Settings.Timezone)
	}
	return time.Now().UTC()
}

// underRoot reports whether abs is the project root itself or nested
// under it, guarding against path-escape via "..".
func (a *Assembler) underRoot(abs string) bool {
	root := a.Settings.ProjectRoot
	if root == "" {
		return true
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func (a *Assembler) expandGlob(pattern string) []string {
	root := a.Settings.ProjectRoot
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(root, m))
	}
	return out
}

// resolveRoles expands glob patterns against the project root and reads
// every matching file's contents; files that don't exist or escape the
// root are silently skipped.
func (a *Assembler) resolveRoles(patterns []string) []string {
	var defs []string
	for _, pattern := range patterns {
		for _, path := range a.resolvePathPattern(pattern) {
			content, ok := a.readFileInRoot(path)
			if ok {
				defs = append(defs, content)
			}
		}
	}
	return defs
}

func (a *Assembler) resolvePathPattern(pattern string) []string {
	if strings.ContainsAny(pattern, "*?[") {
		return a.expandGlob(pattern)
	}
	if filepath.IsAbs(pattern) {
		return []string{pattern}
	}
	return []string{filepath.Join(a.Settings.ProjectRoot, pattern)}
}

func (a *Assembler) readFileInRoot(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil || !a.underRoot(abs) {
		return "", false
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (a *Assembler) readProjectFile(path string) string {
	if path == "" {
		return ""
	}
	content, _ := a.readFileInRoot(path)
	return content
}

// resolveReferences reads every active reference's content at render
// time. A failed read drops the reference silently rather than erroring
// the whole prompt.
func (a *Assembler) resolveReferences(refs []types.Reference) []FileReference {
	var out []FileReference
	for _, ref := range refs {
		if !ref.Active() {
			continue
		}
		for _, path := range a.resolvePathPattern(ref.Path) {
			abs, err := filepath.Abs(path)
			if err != nil || !a.underRoot(abs) {
				continue
			}
			var content string
			var ok bool
			if strings.EqualFold(filepath.Ext(abs), ".pdf") {
				content, ok = readPDFText(abs)
			} else {
				content, ok = a.readFileInRoot(abs)
			}
			if ok {
				out = append(out, FileReference{Path: path, Content: content})
			}
		}
	}
	return out
}

// resolveArtifacts reads every file the runner recorded as touched this
// session (§3's checkpoint supplement), the same read-under-root rules
// as resolveReferences; a failed read drops the artifact silently.
func (a *Assembler) resolveArtifacts(paths []string) []Artifact {
	var out []Artifact
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil || !a.underRoot(abs) {
			continue
		}
		var content string
		var ok bool
		if strings.EqualFold(filepath.Ext(abs), ".pdf") {
			content, ok = readPDFText(abs)
		} else {
			content, ok = a.readFileInRoot(abs)
		}
		if ok {
			out = append(out, Artifact{Path: path, Contents: content})
		}
	}
	return out
}

// readPDFText extracts text from the first maxPDFPages pages of a PDF
// reference, grounded on the teacher's FileReadTool.readPDF.
func readPDFText(path string) (string, bool) {
	file, reader, err := gopdf.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return "", true
	}
	pages := totalPages
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), true
}
