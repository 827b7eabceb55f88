package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

const manifestPath = "package.json"

// frontendFrameworks are the manifest dependencies that mark a build as a
// front-end build.
var frontendFrameworks = []string{"next", "react", "vue", "@angular/core", "svelte"}

type packageManifest struct {
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// ExplicitProjectType returns the caller-supplied type if it names backend or
// frontend, ignoring case.
func ExplicitProjectType(explicit string) (model.ProjectType, bool) {
	switch pt := model.ProjectType(strings.ToLower(strings.TrimSpace(explicit))); pt {
	case model.ProjectTypeBackend, model.ProjectTypeFrontend:
		return pt, true
	}
	return "", false
}

// DetectProjectType resolves the project type of owner/repo. An explicit
// backend or frontend wins; otherwise the manifest decides. It never fails:
// every fetch or parse problem yields unknown.
func DetectProjectType(ctx context.Context, client driven.ActionsClient, owner, repo, explicit string) model.ProjectType {
	if pt, ok := ExplicitProjectType(explicit); ok {
		return pt
	}

	data, err := client.FetchManifest(ctx, owner, repo, manifestPath)
	if err != nil {
		slog.Info("manifest unavailable, project type unknown", "repo", owner+"/"+repo, "error", err)
		return model.ProjectTypeUnknown
	}

	return ClassifyManifest(data)
}

// ClassifyManifest classifies raw package.json content.
func ClassifyManifest(data []byte) model.ProjectType {
	var m packageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return model.ProjectTypeUnknown
	}

	if strings.TrimSpace(m.Scripts["build"]) == "" {
		return model.ProjectTypeUnknown
	}

	for _, dep := range frontendFrameworks {
		if _, ok := m.Dependencies[dep]; ok {
			return model.ProjectTypeFrontend
		}
		if _, ok := m.DevDependencies[dep]; ok {
			return model.ProjectTypeFrontend
		}
	}
	return model.ProjectTypeBackend
}
