// Package cinder provides an incremental consistency checker for quantified
// rules evaluated against a stream of context changes.
//
// A rule is a formula built from quantifiers ("forall v in S", "exists v in S"),
// the connectives and, implies and not, and named binary predicates over the
// contexts bound by the enclosing quantifiers. Rules range over named context
// sets kept in a Registry, which is shared by every rule checked together.
//
// Typical use is as follows:
//
//  1. Create a Registry
//  2. Build a rule formula (by hand, or with the rulefile package)
//  3. Create a Checker for the rule with a Predicate library
//  4. Feed context additions and removals to the Checker with Update
//  5. Call Check after every batch of changes and inspect the Report
//
// Incremental Checking
//
// A Checker keeps a Checking Context Tree (CCT) for its rule: a copy of the
// formula in which every quantifier has one branch per context currently in
// its set. Each node caches its truth value and witness. An update only marks
// the path from the affected quantifier instances to the root as stale, and
// Check only recomputes stale nodes. The verdict is the same as checking the
// rule from scratch against the current sets.
//
// Witnesses
//
// A failing rule is reported with a witness: one or more chains of contexts
// that together explain the violation. On the wire a chain is written as the
// context identifiers joined by ';' and chains are joined by '#'.
//
// Checker Ownership
//
// A Checker is not safe for concurrent use. The calling application must ensure:
//  1. Update and Check are not called at the same time on one Checker.
//  2. Every change to a shared Registry is routed to all checkers that
//     reference the changed set before the next Check.
//
// The Suite type takes care of both: it applies a batch of changes as the
// single writer of the Registry, then checks all its rules in parallel.
package cinder
