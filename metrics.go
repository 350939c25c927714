package habanero

import (
	"github.com/uber-go/tally/v4"
)

// Metrics committer and identity map metrics
type Metrics struct {
	CommitSuccess       tally.Counter
	CommitFail          tally.Counter
	ConcurrencyConflict tally.Counter
	CommitDuration      tally.Timer

	StatementsExecuted tally.Counter
	ObjectsInserted    tally.Counter
	ObjectsUpdated     tally.Counter
	ObjectsDeleted     tally.Counter

	IdentityMapHit  tally.Counter
	IdentityMapMiss tally.Counter
}

// NewMetrics returns a new Metrics struct with all metrics initialized and rooted below the given tally scope
func NewMetrics(scope tally.Scope) *Metrics {
	commitScope := scope.SubScope("commit")
	objectScope := scope.SubScope("objects")
	identityScope := scope.SubScope("identity_map")

	return &Metrics{
		CommitSuccess:       commitScope.Counter("success"),
		CommitFail:          commitScope.Counter("fail"),
		ConcurrencyConflict: commitScope.Counter("concurrency_conflict"),
		CommitDuration:      commitScope.Timer("duration"),

		StatementsExecuted: scope.Counter("statements_executed"),
		ObjectsInserted:    objectScope.Counter("inserted"),
		ObjectsUpdated:     objectScope.Counter("updated"),
		ObjectsDeleted:     objectScope.Counter("deleted"),

		IdentityMapHit:  identityScope.Counter("hit"),
		IdentityMapMiss: identityScope.Counter("miss"),
	}
}
