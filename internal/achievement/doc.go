// Package achievement evaluates declarative achievement rules.
//
// A rule is an (id, pure predicate) pair over an immutable Stats value.
// Two fixed tables exist:
//
//   - GameRules: evaluated once per finished session against that session's Stats.
//   - LifetimeRules: evaluated against a cumulative ProfileStats owned by an
//     external profile store, with NewlyEarned answering "what did this game
//     unlock that the player did not already have?".
//
// This package does not persist ProfileStats. The caller loads the profile,
// folds each finished game in with ProfileStats.Add, calls NewlyEarned with
// the IDs it has already awarded, and stores the result itself.
//
// Evaluation has no hidden state: the same input always yields the same rule
// set, in table order.
package achievement
