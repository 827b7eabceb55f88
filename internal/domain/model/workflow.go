package model

// WorkflowSpec is the structured definition of a CI/CD pipeline. It is built
// once and only read afterwards.
type WorkflowSpec struct {
	Name        string
	ProjectType ProjectType
	ProjectName string
	Triggers    Triggers
	JobID       string
	RunsOn      string
	Steps       []Step
}

// Triggers configures the events that start the workflow.
type Triggers struct {
	Push           BranchFilter
	PullRequest    BranchFilter
	ManualDispatch bool
}

// BranchFilter limits an event to matching branches and paths.
type BranchFilter struct {
	Branches []string
	Paths    []string
}

// Step is a single named action. Exactly one of Uses or Run is set.
type Step struct {
	Name string
	ID   string
	Uses string
	With []Param // Ordered so rendering is stable.
	Run  string
}

// Param is an ordered key/value input to a reusable action.
type Param struct {
	Key   string
	Value string
}

// HasRunStep reports whether any step runs exactly cmd.
func (s WorkflowSpec) HasRunStep(cmd string) bool {
	for _, step := range s.Steps {
		if step.Run == cmd {
			return true
		}
	}
	return false
}
