package application

import (
	"fmt"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
)

const (
	workflowJobID  = "build"
	workflowRunsOn = "self-hosted"
)

// BuildSpec maps a project type and name to a workflow spec. It is pure:
// equal inputs give equal specs. Any type other than backend or frontend
// gets the best-effort build with no deploy step.
func BuildSpec(projectType model.ProjectType, projectName string) model.WorkflowSpec {
	filter := func() model.BranchFilter {
		return model.BranchFilter{Branches: []string{"main"}, Paths: []string{"*"}}
	}

	spec := model.WorkflowSpec{
		ProjectName: projectName,
		Triggers: model.Triggers{
			Push:           filter(),
			PullRequest:    filter(),
			ManualDispatch: true,
		},
		JobID:  workflowJobID,
		RunsOn: workflowRunsOn,
		Steps:  commonSteps(),
	}

	switch projectType {
	case model.ProjectTypeBackend:
		spec.ProjectType = model.ProjectTypeBackend
		spec.Name = projectName + " Backend CI/CD"
		spec.Steps = append(spec.Steps,
			model.Step{Name: "Run tests (if exists)", Run: "npm test || echo 'No test script found'"},
			model.Step{
				Name: fmt.Sprintf("Restart %s via PM2", projectName),
				Run:  fmt.Sprintf(`pm2 restart %s || pm2 start npm --name "%s" -- start`, projectName, projectName),
			},
		)
	case model.ProjectTypeFrontend:
		spec.ProjectType = model.ProjectTypeFrontend
		spec.Name = projectName + " Frontend CI/CD"
		spec.Steps = append(spec.Steps,
			model.Step{Name: "Build project", Run: "npm run build"},
			model.Step{Name: "Export static files (for Next.js)", Run: "npm run export || echo 'No export script found'"},
			model.Step{
				Name: "Serve with PM2",
				Run:  fmt.Sprintf(`pm2 restart %s || pm2 serve build 3000 --name "%s" --spa`, projectName, projectName),
			},
		)
	default:
		spec.ProjectType = model.ProjectTypeUnknown
		spec.Name = projectName + " CI/CD"
		spec.Steps = append(spec.Steps,
			model.Step{Name: "Build project (if exists)", Run: "npm run build || echo 'No build script found'"},
		)
	}

	return spec
}

// commonSteps returns a fresh slice each call so specs never share backing
// arrays.
func commonSteps() []model.Step {
	return []model.Step{
		{Name: "Checkout repository", Uses: "actions/checkout@v4"},
		{
			Name: "Use Node.js 20.x",
			Uses: "actions/setup-node@v4",
			With: []model.Param{{Key: "node-version", Value: "20.x"}},
		},
		{
			Name: "Cache node_modules",
			ID:   "cache-node-modules",
			Uses: "actions/cache@v3",
			With: []model.Param{
				{Key: "path", Value: "node_modules"},
				{Key: "key", Value: "${{ runner.os }}-node-modules-${{ hashFiles('package-lock.json') }}"},
				{Key: "restore-keys", Value: "${{ runner.os }}-node-modules-"},
			},
		},
		{Name: "Install dependencies", Run: "npm install"},
	}
}

// WorkflowPath returns the repository path a spec is committed to.
func WorkflowPath(spec model.WorkflowSpec) string {
	return ".github/workflows/" + slug(spec.ProjectName) + ".yml"
}

func slug(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "ci"
	}
	return string(out)
}
