// Package domain defines the core business entities of the mastery
// verification engine: submissions and their defense state machine,
// progression records and user aggregates, scheduled review items, and
// flashcards with their per-user scheduling state.
//
// Entities are created through constructors that validate invariants and
// are treated as immutable outside the services that own their
// transitions. The SM-2 scheduling math lives in the srs subpackage.
package domain
