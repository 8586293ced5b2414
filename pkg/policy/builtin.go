package policy

// BuiltinRules returns the rules compiled into every engine. They cover
// concerns the allowlist and blocklist cannot express, like path hygiene
// for module files and advisory findings on unusual addresses.
func BuiltinRules() []Rule {
	return []Rule{
		moduleFileHygieneRule(),
		addressHygieneRule(),
		attributeDepthRule(),
	}
}

// moduleFileHygieneRule blocks module files loaded from temporary or
// world-writable locations.
func moduleFileHygieneRule() Rule {
	return Rule{
		Name:        "module-file-hygiene",
		Description: "Blocks module files loaded from temporary or shared-memory directories",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"files", "hygiene"},
		Rego: `package structcast.rules.files

import rego.v1

deny contains violation if {
	input.operation == "load"
	some prefix in ["/tmp/", "/var/tmp/", "/dev/shm/"]
	startswith(input.file, prefix)
	violation := {
		"message": sprintf("module file %s loaded from a temporary directory", [input.file]),
		"severity": "error",
	}
}
`,
	}
}

// addressHygieneRule warns on addresses whose symbol names suggest
// dynamic evaluation.
func addressHygieneRule() Rule {
	return Rule{
		Name:        "address-hygiene",
		Description: "Warns when a resolved symbol name suggests dynamic code evaluation",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"addresses", "hygiene"},
		Rego: `package structcast.rules.addresses

import rego.v1

suspicious := {"eval", "exec", "compile", "system"}

deny contains violation if {
	input.operation == "resolve"
	suspicious[input.symbol]
	violation := {
		"message": sprintf("symbol %s.%s has a name associated with dynamic evaluation", [input.module, input.symbol]),
		"severity": "warning",
	}
}
`,
	}
}

// attributeDepthRule warns on unusually long attribute chains, which
// usually indicate a configuration reaching through internals.
func attributeDepthRule() Rule {
	return Rule{
		Name:        "attribute-depth",
		Description: "Warns when an attribute path is more than six segments deep",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"attributes", "hygiene"},
		Rego: `package structcast.rules.attributes

import rego.v1

deny contains violation if {
	input.operation == "attribute"
	segments := split(input.attribute, ".")
	count(segments) > 6
	violation := {
		"message": sprintf("attribute path %s is %d segments deep", [input.attribute, count(segments)]),
		"severity": "warning",
	}
}
`,
	}
}
