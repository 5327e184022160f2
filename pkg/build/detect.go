// Package build runs the target project's build tool: detection,
// compile and test subprocesses with live line streaming, and output
// parsing into structured errors and test totals.
package build

import (
	"errors"
	"os"
	"path/filepath"
)

// Tool identifies a supported build tool.
type Tool string

const (
	ToolMaven  Tool = "maven"
	ToolGradle Tool = "gradle"
)

// Info describes the detected build tool for a repository root.
type Info struct {
	Tool    Tool   `json:"tool"`
	Command string `json:"command"`
	Wrapper bool   `json:"wrapper"`
}

// ErrNoBuildTool indicates no known build manifest at the repository root
var ErrNoBuildTool = errors.New("no supported build tool detected")

// Detect probes for known build manifests at root. A checked-in wrapper
// script is preferred over a system-wide installation.
func Detect(root string) (Info, error) {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}

	if exists("pom.xml") {
		if exists("mvnw") {
			return Info{Tool: ToolMaven, Command: "./mvnw", Wrapper: true}, nil
		}
		return Info{Tool: ToolMaven, Command: "mvn"}, nil
	}
	if exists("build.gradle") || exists("build.gradle.kts") {
		if exists("gradlew") {
			return Info{Tool: ToolGradle, Command: "./gradlew", Wrapper: true}, nil
		}
		return Info{Tool: ToolGradle, Command: "gradle"}, nil
	}
	return Info{}, ErrNoBuildTool
}
