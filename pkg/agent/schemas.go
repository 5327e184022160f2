package agent

import "github.com/codeready-toolchain/repoai/pkg/llm"

// JSON schemas enforced on structured agent output before unmarshal.
// Validation failures count as model failures and trigger route
// fallback inside the router.

var jobSpecSchema = llm.MustCompileSchema("jobspec.json", []byte(`{
  "type": "object",
  "required": ["intent", "scope", "requirements"],
  "properties": {
    "job_id": {"type": "string"},
    "intent": {"type": "string", "minLength": 1},
    "scope": {
      "type": "object",
      "properties": {
        "target_files": {"type": "array", "items": {"type": "string"}},
        "target_modules": {"type": "array", "items": {"type": "string"}},
        "source_language": {"type": "string"},
        "build_system": {"type": "string"},
        "excludes": {"type": "array", "items": {"type": "string"}}
      }
    },
    "requirements": {"type": "array", "items": {"type": "string"}},
    "constraints": {"type": "array", "items": {"type": "string"}},
    "code_context": {"type": "object"}
  }
}`))

var planSchema = llm.MustCompileSchema("plan.json", []byte(`{
  "type": "object",
  "required": ["steps", "risk_assessment"],
  "properties": {
    "plan_id": {"type": "string"},
    "job_id": {"type": "string"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["step_number", "action", "description"],
        "properties": {
          "step_number": {"type": "integer", "minimum": 1},
          "action": {"type": "string", "minLength": 1},
          "target_files": {"type": "array", "items": {"type": "string"}},
          "target_classes": {"type": "array", "items": {"type": "string"}},
          "description": {"type": "string"},
          "dependencies": {"type": "array", "items": {"type": "integer"}},
          "risk_level": {"type": "integer", "minimum": 0, "maximum": 10},
          "estimated_minutes": {"type": "integer", "minimum": 0}
        }
      }
    },
    "risk_assessment": {
      "type": "object",
      "properties": {
        "overall_risk": {"type": "string"},
        "breaking_changes": {"type": "boolean"},
        "compilation_risk": {"type": "boolean"},
        "affected_modules": {"type": "array", "items": {"type": "string"}},
        "mitigation_strategies": {"type": "array", "items": {"type": "string"}}
      }
    },
    "estimated_duration_minutes": {"type": "integer", "minimum": 0}
  }
}`))

var codeChangesSchema = llm.MustCompileSchema("changes.json", []byte(`{
  "type": "object",
  "required": ["changes"],
  "properties": {
    "plan_id": {"type": "string"},
    "changes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file_path", "change_type"],
        "properties": {
          "file_path": {"type": "string", "minLength": 1},
          "change_type": {"enum": ["created", "modified", "deleted"]},
          "original_content": {"type": "string"},
          "modified_content": {"type": "string"},
          "diff": {"type": "string"},
          "imports_added": {"type": "array", "items": {"type": "string"}},
          "methods_added": {"type": "array", "items": {"type": "string"}},
          "annotations_added": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`))

var validationSchema = llm.MustCompileSchema("validation.json", []byte(`{
  "type": "object",
  "required": ["passed", "checks"],
  "properties": {
    "plan_id": {"type": "string"},
    "passed": {"type": "boolean"},
    "compilation_passed": {"type": "boolean"},
    "checks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "passed"],
        "properties": {
          "name": {"type": "string"},
          "passed": {"type": "boolean"},
          "issues": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "test_coverage": {"type": "number", "minimum": 0, "maximum": 1},
    "security_vulnerabilities": {"type": "array"},
    "confidence": {"type": "object"},
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`))

var prDescriptionSchema = llm.MustCompileSchema("prdesc.json", []byte(`{
  "type": "object",
  "required": ["title", "summary"],
  "properties": {
    "plan_id": {"type": "string"},
    "title": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "file_descriptions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file_path"],
        "properties": {
          "file_path": {"type": "string"},
          "category": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "breaking_changes": {"type": "array", "items": {"type": "string"}},
    "migration_guide": {"type": "string"},
    "testing_notes": {"type": "string"}
  }
}`))
