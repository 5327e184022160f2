package agent

import (
	"fmt"
	"strings"
)

// Dependency is one resolvable build-system dependency declaration.
type Dependency struct {
	GroupID    string
	ArtifactID string
	Version    string
	Scope      string
}

// dependencyCatalog maps short names the Transformer may use to full
// coordinates. Versions track current stable releases; scope defaults
// to compile.
var dependencyCatalog = map[string]Dependency{
	"spring-context":              {GroupID: "org.springframework", ArtifactID: "spring-context", Version: "6.1.14"},
	"spring-boot-starter":         {GroupID: "org.springframework.boot", ArtifactID: "spring-boot-starter", Version: "3.3.5"},
	"spring-boot-starter-web":     {GroupID: "org.springframework.boot", ArtifactID: "spring-boot-starter-web", Version: "3.3.5"},
	"spring-boot-starter-data":    {GroupID: "org.springframework.boot", ArtifactID: "spring-boot-starter-data-jpa", Version: "3.3.5"},
	"spring-boot-starter-test":    {GroupID: "org.springframework.boot", ArtifactID: "spring-boot-starter-test", Version: "3.3.5", Scope: "test"},
	"spring-data-redis":           {GroupID: "org.springframework.data", ArtifactID: "spring-data-redis", Version: "3.3.5"},
	"jedis":                       {GroupID: "redis.clients", ArtifactID: "jedis", Version: "5.1.5"},
	"lettuce":                     {GroupID: "io.lettuce", ArtifactID: "lettuce-core", Version: "6.4.0.RELEASE"},
	"jackson":                     {GroupID: "com.fasterxml.jackson.core", ArtifactID: "jackson-databind", Version: "2.18.1"},
	"gson":                        {GroupID: "com.google.code.gson", ArtifactID: "gson", Version: "2.11.0"},
	"guava":                       {GroupID: "com.google.guava", ArtifactID: "guava", Version: "33.3.1-jre"},
	"commons-lang3":               {GroupID: "org.apache.commons", ArtifactID: "commons-lang3", Version: "3.17.0"},
	"slf4j":                       {GroupID: "org.slf4j", ArtifactID: "slf4j-api", Version: "2.0.16"},
	"lombok":                      {GroupID: "org.projectlombok", ArtifactID: "lombok", Version: "1.18.34", Scope: "provided"},
	"junit":                       {GroupID: "org.junit.jupiter", ArtifactID: "junit-jupiter", Version: "5.11.3", Scope: "test"},
	"mockito":                     {GroupID: "org.mockito", ArtifactID: "mockito-core", Version: "5.14.2", Scope: "test"},
	"assertj":                     {GroupID: "org.assertj", ArtifactID: "assertj-core", Version: "3.26.3", Scope: "test"},
	"caffeine":                    {GroupID: "com.github.ben-manes.caffeine", ArtifactID: "caffeine", Version: "3.1.8"},
	"hibernate-validator":         {GroupID: "org.hibernate.validator", ArtifactID: "hibernate-validator", Version: "8.0.1.Final"},
	"jakarta-validation":          {GroupID: "jakarta.validation", ArtifactID: "jakarta.validation-api", Version: "3.1.0"},
	"resilience4j-circuitbreaker": {GroupID: "io.github.resilience4j", ArtifactID: "resilience4j-circuitbreaker", Version: "2.2.0"},
}

// ResolveDependency turns a short catalog name or an explicit
// group:artifact:version coordinate into a Dependency.
func ResolveDependency(spec string) (Dependency, error) {
	spec = strings.TrimSpace(spec)
	if dep, ok := dependencyCatalog[strings.ToLower(spec)]; ok {
		return dep, nil
	}
	parts := strings.Split(spec, ":")
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return Dependency{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
	}
	return Dependency{}, fmt.Errorf("unknown dependency %q: not in catalog and not group:artifact:version", spec)
}

// MavenSnippet renders the dependency as a pom.xml <dependency> block.
func (d Dependency) MavenSnippet() string {
	var b strings.Builder
	b.WriteString("        <dependency>\n")
	fmt.Fprintf(&b, "            <groupId>%s</groupId>\n", d.GroupID)
	fmt.Fprintf(&b, "            <artifactId>%s</artifactId>\n", d.ArtifactID)
	fmt.Fprintf(&b, "            <version>%s</version>\n", d.Version)
	if d.Scope != "" {
		fmt.Fprintf(&b, "            <scope>%s</scope>\n", d.Scope)
	}
	b.WriteString("        </dependency>")
	return b.String()
}

// GradleSnippet renders the dependency as a build.gradle line.
func (d Dependency) GradleSnippet() string {
	conf := "implementation"
	switch d.Scope {
	case "test":
		conf = "testImplementation"
	case "provided":
		conf = "compileOnly"
	}
	return fmt.Sprintf("    %s '%s:%s:%s'", conf, d.GroupID, d.ArtifactID, d.Version)
}

// AddDependency inserts the dependency declaration into a Maven or
// Gradle manifest body and returns the updated content. Already-present
// artifacts are left untouched.
func AddDependency(manifestPath, content string, dep Dependency) (string, bool) {
	if strings.Contains(content, dep.ArtifactID) {
		return content, false
	}

	if strings.HasSuffix(manifestPath, "pom.xml") {
		marker := "</dependencies>"
		if idx := strings.Index(content, marker); idx >= 0 {
			return content[:idx] + dep.MavenSnippet() + "\n    " + content[idx:], true
		}
		return content, false
	}

	// Gradle: append inside the dependencies block.
	marker := "dependencies {"
	if idx := strings.Index(content, marker); idx >= 0 {
		insert := idx + len(marker)
		return content[:insert] + "\n" + dep.GradleSnippet() + content[insert:], true
	}
	return content, false
}
