// Package pattern implements the instantiation engine: declarative node
// trees (_addr_, _attr_, _call_, _bind_, _obj_) parsed from plain
// configuration and folded over an accumulator to produce one runtime
// object per object pattern.
//
// Node trees are immutable after parse and reusable across invocations.
// Each Instantiate call carries its own accumulator state, a fixed start
// time, and depth plus wall-clock budgets enforced before any node work.
// Everything an address node resolves goes through the resolve package
// and therefore through the active security settings.
package pattern
