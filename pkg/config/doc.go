// Package config loads the documents the engine consumes.
//
// Two concerns live here. Document loading turns YAML, JSON and CUE
// files into plain data trees ready for template expansion and
// instantiation, with every file access gated by the security policy.
// Settings loading reads the security policy file itself, validates it
// against its schema and applies it to the process-wide snapshot.
package config
